package main

import (
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"genesis/internal/di"
	"genesis/internal/pubsub"
	"genesis/internal/world"
)

var spawnNames = []string{"Iri", "Ash", "Vale", "Nix", "Sol", "Bram", "Echo", "Wren"}

func newRunCmd() *cobra.Command {
	var spawn int

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the world loop until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runWorld(cmd, spawn)
		},
	}
	cmd.Flags().IntVar(&spawn, "spawn", 3, "Natives to spawn into a fresh world")
	return cmd
}

func runWorld(cmd *cobra.Command, spawn int) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	c, err := di.BuildContainer(cfg)
	if err != nil {
		return err
	}
	defer c.Cleanup()

	// Only seed natives into a fresh world; a restored world keeps its own.
	if c.World.AliveCount() <= 1 {
		rng := rand.New(rand.NewSource(time.Now().UnixNano()))
		for i := 0; i < spawn; i++ {
			name := fmt.Sprintf("Native-%d", i+1)
			if i < len(spawnNames) {
				name = spawnNames[i]
			}
			pos := world.Vec3{
				X: rng.Float64()*40 - 20,
				Y: 0,
				Z: rng.Float64()*40 - 20,
			}
			if _, err := c.World.SpawnNative(name, pos); err != nil {
				return fmt.Errorf("spawn %s: %w", name, err)
			}
		}
	}

	subID, messages := c.Broker.Subscribe("", 256)
	defer c.Broker.Unsubscribe(subID)
	go renderEvents(messages, c)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "genesis: %d entities, tick every %s, store %s\n",
		c.World.AliveCount(), cfg.TickInterval(), cfg.StorePath)

	return c.World.Run(ctx)
}

var (
	tickColor   = color.New(color.FgHiBlack).SprintFunc()
	speechColor = color.New(color.FgCyan).SprintFunc()
	godColor    = color.New(color.FgYellow, color.Bold).SprintFunc()
	deathColor  = color.New(color.FgRed).SprintFunc()
	buildColor  = color.New(color.FgGreen).SprintFunc()
	eventColor  = color.New(color.FgMagenta).SprintFunc()
)

// renderEvents prints the live event stream to stdout.
func renderEvents(messages <-chan pubsub.Message, c *di.Container) {
	for msg := range messages {
		event, ok := msg.Payload.(world.Event)
		if !ok {
			continue
		}
		line := formatEvent(event, c)
		if line == "" {
			continue
		}
		fmt.Printf("%s %s\n", tickColor(fmt.Sprintf("[%6d]", event.Tick)), line)
	}
}

func formatEvent(event world.Event, c *di.Container) string {
	actor := actorName(event.Actor, c)
	switch event.Type {
	case world.EventSpeech:
		return fmt.Sprintf("%s: %s", speechColor(actor), paramString(event, "text", "message"))
	case world.EventConversation:
		partner := actorName(paramString(event, "partner_id"), c)
		return fmt.Sprintf("%s talked with %s about %s (%s)",
			speechColor(actor), speechColor(partner),
			paramString(event, "topic"), paramString(event, "outcome"))
	case world.EventGodSpeech:
		return fmt.Sprintf("%s %s", godColor(actor+" speaks:"), paramString(event, "text", "message"))
	case world.EventGodAction:
		if event.Result == world.ResultRejected {
			return fmt.Sprintf("%s %s rejected (%s)", godColor(actor), event.Action, event.Reason)
		}
		return fmt.Sprintf("%s %s", godColor(actor), event.Action)
	case world.EventWorldEvent:
		return eventColor(paramString(event, "text", "description"))
	case world.EventDeath:
		return deathColor(fmt.Sprintf("%s has died (%s)", actor, event.Reason))
	case world.EventCodeExecuted:
		if event.Result == world.ResultRejected {
			return fmt.Sprintf("%s code rejected: %s", buildColor(actor), event.Reason)
		}
		return fmt.Sprintf("%s executed code", buildColor(actor))
	case world.EventAction:
		switch event.Action {
		case "place_voxel", "destroy_voxel", "create_art", "write_sign", "claim_territory":
			return fmt.Sprintf("%s %s", buildColor(actor), event.Action)
		}
		return ""
	default:
		return ""
	}
}

func actorName(id string, c *di.Container) string {
	if id == "" {
		return "world"
	}
	if entity, ok := c.World.Lookup(id); ok {
		return entity.Name
	}
	return id
}

// paramString returns the first non-empty string among the named params.
func paramString(event world.Event, keys ...string) string {
	for _, key := range keys {
		if raw, ok := event.Params[key]; ok {
			if s, ok := raw.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}
