package build

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"agentforge/internal/utils"
)

// ErrParse marks a model reply that is not a usable artifact object.
var ErrParse = errors.New("build: artifact parse failed")

// File is one generated file, in emission order.
type File struct {
	Path    string
	Content string
}

// Artifact is an agent's parsed turn output.
type Artifact struct {
	Thought string
	Files   []File
}

// artifactReply documents the expected reply shape for the prompt.
type artifactReply struct {
	Thought string            `json:"thought" desc:"one or two sentences on what you produced and why"`
	Files   map[string]string `json:"files" desc:"relative file path mapped to the full file content"`
}

const defaultThought = "Working..."

// ParseArtifact decodes {"thought": string, "files": {path: content}} from a
// model reply, tolerating a surrounding code fence or chatter around the
// object. File order follows the order of keys in the reply.
func ParseArtifact(reply string) (Artifact, error) {
	raw := extractObject(utils.StripFences(reply))
	var top map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &top); err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrParse, err)
	}

	art := Artifact{Thought: defaultThought}
	if t, ok := top["thought"]; ok && !isNull(t) {
		if err := json.Unmarshal(t, &art.Thought); err != nil {
			return Artifact{}, fmt.Errorf("%w: thought is not a string", ErrParse)
		}
	}
	filesRaw, ok := top["files"]
	if !ok {
		return Artifact{}, fmt.Errorf(`%w: missing "files"`, ErrParse)
	}
	files, err := orderedFiles(filesRaw)
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: files: %v", ErrParse, err)
	}
	art.Files = files
	return art, nil
}

// extractObject trims anything before the first '{' and after the last '}'.
func extractObject(s string) string {
	start := strings.IndexByte(s, '{')
	end := strings.LastIndexByte(s, '}')
	if start < 0 || end < start {
		return s
	}
	return s[start : end+1]
}

func orderedFiles(raw json.RawMessage) ([]File, error) {
	if isNull(raw) {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errors.New("expected an object")
	}
	var (
		out   []File
		index = map[string]int{}
	)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, _ := tok.(string)
		var val json.RawMessage
		if err := dec.Decode(&val); err != nil {
			return nil, err
		}
		content, err := contentOf(val)
		if err != nil {
			return nil, fmt.Errorf("%s: %v", key, err)
		}
		// a repeated key keeps its first position and the last content
		if i, dup := index[key]; dup {
			out[i].Content = content
			continue
		}
		index[key] = len(out)
		out = append(out, File{Path: key, Content: content})
	}
	return out, nil
}

// contentOf returns strings as-is and renders any other JSON value as
// indented JSON text, which is what a model means by an inline object.
func contentOf(val json.RawMessage) (string, error) {
	if isNull(val) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(val, &s); err == nil {
		return s, nil
	}
	var buf bytes.Buffer
	if err := json.Indent(&buf, val, "", "  "); err != nil {
		return "", err
	}
	return buf.String() + "\n", nil
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
