// Package dialogue records the per-project agent transcript. Entries are
// append-only; lifecycle operations and the runner both write through the
// same path.
package dialogue

import (
	"context"
	"errors"
	"time"

	"github.com/zentriztech/zentriz-genesis/internal/domain"
	"github.com/zentriztech/zentriz-genesis/internal/repo"
)

// ErrInvalid marks an entry missing one of the required fields.
var ErrInvalid = errors.New("dialogue entry requires from_role, to_role and summary")

type Writer struct {
	Repo repo.Repo
	Now  func() time.Time
}

// Append validates and stores one transcript entry, returning it with the
// assigned id and timestamp.
func (w Writer) Append(ctx context.Context, e domain.DialogueEntry) (domain.DialogueEntry, error) {
	if e.FromRole == "" || e.ToRole == "" || e.Summary == "" {
		return domain.DialogueEntry{}, ErrInvalid
	}
	now := time.Now
	if w.Now != nil {
		now = w.Now
	}
	e.CreatedAt = now().UTC().Format(time.RFC3339)
	id, err := w.Repo.InsertDialogue(ctx, e)
	if err != nil {
		return domain.DialogueEntry{}, err
	}
	e.ID = id
	return e, nil
}

// System writes a portal-originated entry, used by the lifecycle
// operations to mark run, stop and accept events.
func (w Writer) System(ctx context.Context, projectID, eventType, summary string) error {
	evt := eventType
	_, err := w.Append(ctx, domain.DialogueEntry{
		ProjectID: projectID,
		FromRole:  "system",
		ToRole:    "user",
		EventType: &evt,
		Summary:   summary,
	})
	return err
}
