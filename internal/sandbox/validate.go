package sandbox

import (
	"fmt"
	"regexp"
)

// denyRule pairs a pattern with the label reported back to the agent.
type denyRule struct {
	pattern *regexp.Regexp
	label   string
}

// Python deny list, checked before any subprocess is spawned. The harness
// also restricts builtins; this layer keeps obviously hostile code from
// ever reaching a child process.
var pythonDenyRules = buildDenyRules()

func buildDenyRules() []denyRule {
	rules := []denyRule{}
	for _, module := range []string{"os", "sys", "subprocess", "socket", "shutil", "ctypes", "pickle", "http", "urllib", "requests"} {
		rules = append(rules, denyRule{
			pattern: regexp.MustCompile(`(?m)^\s*import\s+` + module + `\b`),
			label:   "import " + module,
		})
	}
	for _, identifier := range []string{"__import__", "open", "eval", "exec", "compile", "globals", "locals", "getattr", "setattr", "delattr", "input"} {
		rules = append(rules, denyRule{
			pattern: regexp.MustCompile(`\b` + identifier + `\s*\(`),
			label:   identifier,
		})
	}
	rules = append(rules,
		denyRule{pattern: regexp.MustCompile(`(?m)^\s*from\s+\S+\s+import\b`), label: "from import"},
		denyRule{pattern: regexp.MustCompile(`__\w+__`), label: "dunder access"},
	)
	return rules
}

// ValidatePython returns an error naming the first forbidden construct, or
// nil when the code passes. JavaScript is not pre-validated; its harness
// relies on process isolation alone.
func ValidatePython(code string) error {
	for _, rule := range pythonDenyRules {
		if rule.pattern.MatchString(code) {
			return fmt.Errorf("Forbidden operation: %s", rule.label)
		}
	}
	return nil
}
