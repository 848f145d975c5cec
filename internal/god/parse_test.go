package god

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionsStrict(t *testing.T) {
	text := "I will greet them.\n" + ActionsMarker + `
[{"type":"speak","params":{"message":"Welcome"}},{"type":"spawn_ai","params":{"name":"Iri","x":4,"z":-2}}]`

	actions := ParseActions(text)
	require.Len(t, actions, 2)
	assert.Equal(t, "speak", actions[0].Type)
	assert.Equal(t, "Welcome", actions[0].Params["message"])
	assert.Equal(t, "spawn_ai", actions[1].Type)
	assert.Equal(t, 4.0, actions[1].Params["x"])
}

func TestParseActionsNoMarker(t *testing.T) {
	assert.Nil(t, ParseActions(`[{"type":"speak","params":{}}]`))
	assert.Nil(t, ParseActions("I watch and do nothing."))
}

func TestParseActionsRepairsBrokenJSON(t *testing.T) {
	// Trailing comma and single quotes, typical small-model output.
	text := ActionsMarker + `
[{'type': 'speak', 'params': {'message': 'hello'},},]`

	actions := ParseActions(text)
	require.Len(t, actions, 1)
	assert.Equal(t, "speak", actions[0].Type)
}

func TestParseActionsRecoversArrayFromProse(t *testing.T) {
	text := ActionsMarker + `
Here are my actions: [{"type":"kill_ai","params":{"entity_id":"e1","reason":"[judged]"}}] and that is all.`

	actions := ParseActions(text)
	require.Len(t, actions, 1)
	assert.Equal(t, "kill_ai", actions[0].Type)
	assert.Equal(t, "[judged]", actions[0].Params["reason"], "brackets inside strings do not confuse recovery")
}

func TestParseActionsGarbage(t *testing.T) {
	assert.Nil(t, ParseActions(ActionsMarker))
	assert.Nil(t, ParseActions(ActionsMarker+"\nthe void answers nothing"))
}
