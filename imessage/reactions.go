package imessage

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// keep IN lists well under SQLite's bound parameter limit
const inChunk = 500

// targetGUIDExpr strips the part prefix from associated_message_guid.
const targetGUIDExpr = `CASE
	WHEN m.associated_message_guid LIKE 'p:%/%' THEN substr(m.associated_message_guid, instr(m.associated_message_guid, '/') + 1)
	WHEN m.associated_message_guid LIKE 'bp:%' THEN substr(m.associated_message_guid, 4)
	ELSE m.associated_message_guid END`

// StripAssociatedGUID removes the "p:N/" or "bp:" prefix from an
// associated_message_guid, leaving the target message guid.
func StripAssociatedGUID(guid string) string {
	if rest, ok := strings.CutPrefix(guid, "bp:"); ok {
		return rest
	}
	if strings.HasPrefix(guid, "p:") {
		if i := strings.IndexByte(guid, '/'); i >= 0 {
			return guid[i+1:]
		}
	}
	return guid
}

// ReactionsFor returns the reaction rows targeting the given message guids,
// keyed by target guid, in (date, ROWID) order.
func (c *ChatDB) ReactionsFor(ctx context.Context, guids []string) (map[string][]Reaction, error) {
	out := make(map[string][]Reaction)
	for start := 0; start < len(guids); start += inChunk {
		end := min(start+inChunk, len(guids))
		if err := c.reactionsChunk(ctx, guids[start:end], out); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func (c *ChatDB) reactionsChunk(ctx context.Context, guids []string, out map[string][]Reaction) error {
	b := sq.Select(
		"m.ROWID",
		targetGUIDExpr,
		"m.associated_message_type",
		"m.handle_id",
		"h.id",
		"COALESCE(m.is_from_me, 0)",
		"COALESCE(m.date, 0)",
	).
		From("message m").
		LeftJoin("handle h ON h.ROWID = m.handle_id").
		Where("COALESCE(m.associated_message_type, 0) != 0").
		Where("m.associated_message_guid IS NOT NULL").
		Where(sq.Eq{targetGUIDExpr: guids}).
		OrderBy("m.date ASC", "m.ROWID ASC")

	rows, err := c.query(ctx, b)
	if err != nil {
		return fmt.Errorf("failed to query reactions: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var r Reaction
		if err := rows.Scan(
			&r.ROWID,
			&r.TargetGUID,
			&r.Type,
			&r.HandleID,
			&r.SenderHandle,
			&r.IsFromMe,
			&r.Date,
		); err != nil {
			return fmt.Errorf("failed to scan reaction: %w", err)
		}
		out[r.TargetGUID] = append(out[r.TargetGUID], r)
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("error iterating reactions: %w", err)
	}
	return nil
}

// ActiveReactions folds a target's reaction rows in date order: removal
// codes cancel the same reactor's earlier reaction of that kind, and
// unknown codes are dropped.
func ActiveReactions(rows []Reaction) []Reaction {
	var active []Reaction
	for _, r := range rows {
		kind, ok := LookupReaction(r.Type)
		if !ok {
			continue
		}
		if !kind.Removed {
			active = append(active, r)
			continue
		}
		for i := len(active) - 1; i >= 0; i-- {
			a := active[i]
			if a.Type == r.Type-1000 && a.IsFromMe == r.IsFromMe && a.SenderHandle == r.SenderHandle {
				active = append(active[:i], active[i+1:]...)
				break
			}
		}
	}
	return active
}
