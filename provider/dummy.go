package provider

import "context"

// Dummy is a canned provider for testing. Set the function fields to mock
// responses; unset fields return zero values.
type Dummy struct {
	CompleteFunc func(messages []Message) (string, error)
	EmbedFunc    func(texts []string) ([][]float64, error)
}

var _ Provider = (*Dummy)(nil)

func (d *Dummy) Complete(_ context.Context, messages []Message) (string, error) {
	if d.CompleteFunc == nil {
		return "", nil
	}
	return d.CompleteFunc(messages)
}

func (d *Dummy) Embed(_ context.Context, texts []string) ([][]float64, error) {
	if d.EmbedFunc == nil {
		return make([][]float64, len(texts)), nil
	}
	return d.EmbedFunc(texts)
}
