package service

import (
	"context"
	"fmt"

	"github.com/ZertGraf/gerrit-automerge/internal/message"
)

// Annotator renders message templates and posts them through the client.
type Annotator struct {
	client    ReviewClient
	templates *message.Templates
}

func NewAnnotator(client ReviewClient, templates *message.Templates) *Annotator {
	return &Annotator{client: client, templates: templates}
}

func (a *Annotator) Comment(ctx context.Context, ref message.Ref, data *message.Data) error {
	text, err := a.templates.Render(ref, data)
	if err != nil {
		return err
	}
	if err := a.client.PostComment(ctx, data.Change.Ref(), text); err != nil {
		return fmt.Errorf("post %s comment on %s: %w", ref, data.Change.Ref(), err)
	}
	return nil
}

// Hold posts the message together with the reserved hold vote.
func (a *Annotator) Hold(ctx context.Context, ref message.Ref, data *message.Data) error {
	text, err := a.templates.Render(ref, data)
	if err != nil {
		return err
	}
	if err := a.client.SetBlockingLabel(ctx, data.Change.Ref(), text); err != nil {
		return fmt.Errorf("set hold on %s: %w", data.Change.Ref(), err)
	}
	return nil
}
