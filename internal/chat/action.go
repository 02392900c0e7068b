package chat

import (
	"encoding/json"
	"strings"
)

// EditAction is the JSON object an agent emits to change a project file.
type EditAction struct {
	Thought string `json:"thought,omitempty" desc:"short analysis of the problem" prompt:"optional"`
	Action  string `json:"action" desc:"always \"edit\""`
	File    string `json:"file" desc:"path relative to the project src directory"`
	Content string `json:"content" desc:"full new content of the file"`
}

// ParseEditAction finds the first JSON object in reply whose action is
// "edit" and that names a file. Text around the object is ignored.
func ParseEditAction(reply string) (EditAction, bool) {
	if !strings.Contains(reply, `"action"`) {
		return EditAction{}, false
	}
	for i := 0; i < len(reply); i++ {
		if reply[i] != '{' {
			continue
		}
		var a EditAction
		if err := json.NewDecoder(strings.NewReader(reply[i:])).Decode(&a); err != nil {
			continue
		}
		if a.Action == "edit" && strings.TrimSpace(a.File) != "" {
			return a, true
		}
	}
	return EditAction{}, false
}
