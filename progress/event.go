package progress

import "encoding/json"

type Kind string

const (
	KindPercent Kind = "progress"
	KindDone    Kind = "done"
	KindError   Kind = "error"
)

// Event is one message of a job's progress stream.
type Event struct {
	Kind     Kind
	Percent  float64
	Artifact string
	Message  string
}

func Percent(v float64) Event {
	if v < 0 {
		v = 0
	}
	if v > 100 {
		v = 100
	}
	return Event{Kind: KindPercent, Percent: v}
}

func Done(artifact string) Event {
	return Event{Kind: KindDone, Percent: 100, Artifact: artifact}
}

func Error(message string) Event {
	return Event{Kind: KindError, Message: message}
}

// Terminal reports whether no further events may follow e.
func (e Event) Terminal() bool {
	return e.Kind == KindDone || e.Kind == KindError
}

func (e Event) MarshalJSON() ([]byte, error) {
	switch e.Kind {
	case KindDone:
		return json.Marshal(struct {
			Type     Kind    `json:"type"`
			Done     bool    `json:"done"`
			Percent  float64 `json:"percent"`
			FileName string  `json:"fileName"`
		}{e.Kind, true, e.Percent, e.Artifact})
	case KindError:
		return json.Marshal(struct {
			Type  Kind   `json:"type"`
			Error string `json:"error"`
		}{e.Kind, e.Message})
	default:
		return json.Marshal(struct {
			Type    Kind    `json:"type"`
			Percent float64 `json:"percent"`
		}{KindPercent, e.Percent})
	}
}
