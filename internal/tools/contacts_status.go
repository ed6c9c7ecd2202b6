package tools

import (
	"context"

	"github.com/Napageneral/imessage-max/imessage"
	"github.com/Napageneral/imessage-max/internal/contacts"
)

// ContactsStatusResult reports the contact directory state.
type ContactsStatusResult struct {
	contacts.Stats
	DBPath string `json:"db_path"`
}

// ContactsStatus initializes the resolver if needed and reports its state.
// A missing chat.db fails like every other operation.
func (s *Service) ContactsStatus(ctx context.Context) (*ContactsStatusResult, error) {
	var out *ContactsStatusResult
	err := s.withDB(ctx, "contacts_status", func(*imessage.ChatDB) error {
		s.resolver.Initialize(ctx)
		out = &ContactsStatusResult{Stats: s.resolver.Stats(), DBPath: s.dbPath}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
