// Command keyboard is an action plugin that sends a keyboard shortcut when a
// bound gesture label is recognized. It drives macOS System Events through
// osascript.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/ayusman/mudra/internal/plugin"
)

// KeystrokeParams is read from the action binding's config, or from the
// request params when the binding has none.
type KeystrokeParams struct {
	Key       string   `json:"key"`
	Modifiers []string `json:"modifiers"` // command, option, control, shift
}

var modifierMap = map[string]string{
	"command": "command down",
	"cmd":     "command down",
	"option":  "option down",
	"alt":     "option down",
	"control": "control down",
	"ctrl":    "control down",
	"shift":   "shift down",
}

func main() {
	var req plugin.Request
	if err := json.NewDecoder(os.Stdin).Decode(&req); err != nil {
		respond(fmt.Errorf("failed to decode request: %w", err))
		return
	}

	switch req.Action {
	case "keystroke", "shortcut":
		respond(handleKeystroke(req))
	default:
		respond(fmt.Errorf("unknown action: %s", req.Action))
	}
}

func handleKeystroke(req plugin.Request) error {
	raw := req.Config
	if len(raw) == 0 || string(raw) == "{}" {
		raw = req.Params
	}
	if len(raw) == 0 {
		return fmt.Errorf("no key configured for %q", req.Label)
	}

	var p KeystrokeParams
	if err := json.Unmarshal(raw, &p); err != nil {
		return fmt.Errorf("failed to parse params: %w", err)
	}
	if p.Key == "" {
		return fmt.Errorf("key is required")
	}

	cmd := exec.Command("osascript", "-e", keystrokeScript(p.Key, p.Modifiers))
	if output, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%w: %s", err, output)
	}
	return nil
}

func keystrokeScript(key string, modifiers []string) string {
	var mods []string
	for _, m := range modifiers {
		if am, ok := modifierMap[strings.ToLower(m)]; ok {
			mods = append(mods, am)
		}
	}

	script := fmt.Sprintf(`tell application "System Events" to keystroke %q`, key)
	if len(mods) > 0 {
		script += fmt.Sprintf(" using {%s}", strings.Join(mods, ", "))
	}
	return script
}

func respond(err error) {
	resp := plugin.Response{Success: err == nil}
	if err != nil {
		resp.Error = err.Error()
	}
	json.NewEncoder(os.Stdout).Encode(resp)
}
