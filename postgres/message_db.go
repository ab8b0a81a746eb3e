package postgres

import (
	"context"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/nicolasparada/go-db"
	"github.com/studyhallhq/studyhall/errs"
	"github.com/studyhallhq/studyhall/id"
	"github.com/studyhallhq/studyhall/ptr"
	"github.com/studyhallhq/studyhall/types"
)

// defaultHistoryWindow is the page size when the caller does not ask
// for one.
const defaultHistoryWindow = 50

// CreateMessage persists a message and bumps the unread counter of
// every participant except the author, atomically. Re-sending an
// already persisted message ID writes nothing and reports a duplicate.
func (p *Postgres) CreateMessage(ctx context.Context, in types.SendMessage) (types.SentMessage, error) {
	var out types.SentMessage

	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		if err := p.ensureParticipant(ctx, in.ChatID, in.LoggedInUserID()); err != nil {
			return err
		}

		messageID := in.MessageID
		if messageID == "" {
			messageID = id.Generate()
		}

		const q = `
			INSERT INTO messages (id, chat_id, user_id, content)
			VALUES (@message_id, @chat_id, @user_id, @content)
			ON CONFLICT (id) DO NOTHING
			RETURNING id, created_at
		`
		rows, err := p.db.Query(ctx, q, pgx.NamedArgs{
			"message_id": messageID,
			"chat_id":    in.ChatID,
			"user_id":    in.LoggedInUserID(),
			"content":    in.Content,
		})
		if err != nil {
			return fmt.Errorf("sql insert message: %w", err)
		}

		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.SentMessage])
		if db.IsNotFoundError(err) {
			// A retry of an earlier send. Return the original row and
			// skip the unread bumps; they already happened.
			return p.collectDuplicate(ctx, &out, in, messageID)
		}
		if err != nil {
			return fmt.Errorf("sql collect created message: %w", err)
		}

		return p.bumpUnread(ctx, in.ChatID, in.LoggedInUserID())
	})
}

func (p *Postgres) collectDuplicate(ctx context.Context, out *types.SentMessage, in types.SendMessage, messageID string) error {
	const q = `
		SELECT id, created_at FROM messages
		WHERE id = @message_id AND chat_id = @chat_id AND user_id = @user_id
	`
	rows, err := p.db.Query(ctx, q, pgx.NamedArgs{
		"message_id": messageID,
		"chat_id":    in.ChatID,
		"user_id":    in.LoggedInUserID(),
	})
	if err != nil {
		return fmt.Errorf("sql select duplicate message: %w", err)
	}

	*out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.SentMessage])
	if db.IsNotFoundError(err) {
		// Same ID, different chat or author.
		return errs.NewAlreadyExistsError("MessageID", "message ID already used")
	}
	if err != nil {
		return fmt.Errorf("sql collect duplicate message: %w", err)
	}

	out.Duplicate = true
	return nil
}

func (p *Postgres) bumpUnread(ctx context.Context, chatID, authorID string) error {
	const q = `
		UPDATE participants SET unread_count = unread_count + 1
		WHERE chat_id = @chat_id AND user_id != @author_id
	`
	_, err := p.db.Exec(ctx, q, pgx.NamedArgs{
		"chat_id":   chatID,
		"author_id": authorID,
	})
	if err != nil {
		return fmt.Errorf("sql bump unread counters: %w", err)
	}
	return nil
}

// Messages returns a page of chat history in ascending send order and
// marks the chat as read for the caller in the same transaction.
func (p *Postgres) Messages(ctx context.Context, in types.ListMessages) (types.Page[types.Message], error) {
	var out types.Page[types.Message]
	out.Items = []types.Message{}

	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		if err := p.ensureParticipant(ctx, in.ChatID, in.LoggedInUserID()); err != nil {
			return err
		}

		limit := ptr.Or(in.PageArgs.Last, defaultHistoryWindow)

		q := `
			SELECT messages.* FROM messages
			WHERE messages.chat_id = @chat_id
		`
		args := pgx.NamedArgs{
			"chat_id": in.ChatID,
			"limit":   limit + 1,
		}

		if in.PageArgs.Before != nil {
			before, err := decodeCursor(*in.PageArgs.Before)
			if err != nil {
				return err
			}
			q += ` AND (messages.created_at, messages.id) < (@before_created_at, @before_id)`
			args["before_created_at"] = before.CreatedAt
			args["before_id"] = before.ID
		}

		q += `
			ORDER BY messages.created_at DESC, messages.id DESC
			LIMIT @limit
		`

		rows, err := p.db.Query(ctx, q, args)
		if err != nil {
			return fmt.Errorf("sql select messages: %w", err)
		}

		items, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Message])
		if err != nil {
			return fmt.Errorf("sql collect messages: %w", err)
		}

		if uint(len(items)) > limit {
			out.PageInfo.HasPreviousPage = true
			items = items[:limit]
		}

		// The query walks backwards from the newest; clients read top
		// to bottom.
		slices.Reverse(items)
		out.Items = items

		if len(items) != 0 {
			startCursor, err := encodeCursor(cursor{
				ID:        items[0].ID,
				CreatedAt: items[0].CreatedAt,
			})
			if err != nil {
				return err
			}
			out.PageInfo.StartCursor = ptr.From(startCursor)
		}

		return p.markChatRead(ctx, in.ChatID, in.LoggedInUserID())
	})
}

// MarkChatRead zeroes the caller's unread counter. Marking an already
// read chat is a no-op.
func (p *Postgres) MarkChatRead(ctx context.Context, in types.MarkChatRead) error {
	return p.db.RunTx(ctx, func(ctx context.Context) error {
		if err := p.ensureParticipant(ctx, in.ChatID, in.LoggedInUserID()); err != nil {
			return err
		}
		return p.markChatRead(ctx, in.ChatID, in.LoggedInUserID())
	})
}

func (p *Postgres) markChatRead(ctx context.Context, chatID, userID string) error {
	const q = `
		UPDATE participants SET unread_count = 0
		WHERE chat_id = @chat_id AND user_id = @user_id
	`
	_, err := p.db.Exec(ctx, q, pgx.NamedArgs{
		"chat_id": chatID,
		"user_id": userID,
	})
	if err != nil {
		return fmt.Errorf("sql mark chat read: %w", err)
	}
	return nil
}

// UnreadCount returns the caller's unread counter for one chat.
func (p *Postgres) UnreadCount(ctx context.Context, in types.RetrieveUnreadCount) (int32, error) {
	const q = `
		SELECT unread_count FROM participants
		WHERE chat_id = $1 AND user_id = $2
	`
	var count int32
	err := p.db.QueryRow(ctx, q, in.ChatID, in.LoggedInUserID()).Scan(&count)
	if db.IsNotFoundError(err) {
		return 0, errs.NewNotFoundError("chat not found")
	}
	if err != nil {
		return 0, fmt.Errorf("sql select unread count: %w", err)
	}

	return count, nil
}
