package build

// Status tags a build event.
type Status string

const (
	StatusStart    Status = "start"
	StatusThinking Status = "thinking"
	StatusSearch   Status = "search"
	StatusThought  Status = "thought"
	StatusWarning  Status = "warning"
	StatusFile     Status = "file"
	StatusGitHub   Status = "github"
	StatusError    Status = "error"
	StatusComplete Status = "complete"
	StatusFatal    Status = "fatal"
)

// Event is one line of the build stream. Only the fields relevant to the
// status are set.
type Event struct {
	Status    Status `json:"status"`
	Agent     string `json:"agent,omitempty"`
	Message   string `json:"message,omitempty"`
	Query     string `json:"query,omitempty"`
	Path      string `json:"path,omitempty"`
	Directory string `json:"directory,omitempty"`
	RunID     string `json:"run_id,omitempty"`
}

// Terminal reports whether e ends the stream.
func (e Event) Terminal() bool {
	return e.Status == StatusComplete || e.Status == StatusFatal
}

func startEvent(msg string) Event { return Event{Status: StatusStart, Message: msg} }

func thinkingEvent(agent string) Event {
	return Event{Status: StatusThinking, Agent: agent, Message: "Analyzing requirements..."}
}

func searchEvent(agent, query string) Event {
	return Event{Status: StatusSearch, Agent: agent, Query: query}
}

func thoughtEvent(agent, msg string) Event {
	return Event{Status: StatusThought, Agent: agent, Message: msg}
}

func warningEvent(agent, msg string) Event {
	return Event{Status: StatusWarning, Agent: agent, Message: msg}
}

func fileEvent(agent, path string) Event {
	return Event{Status: StatusFile, Agent: agent, Path: path}
}

func githubEvent(path string) Event { return Event{Status: StatusGitHub, Path: path} }

func errorEvent(agent, msg string) Event {
	return Event{Status: StatusError, Agent: agent, Message: msg}
}

func completeEvent(dir string) Event { return Event{Status: StatusComplete, Directory: dir} }

func fatalEvent(msg string) Event { return Event{Status: StatusFatal, Message: msg} }
