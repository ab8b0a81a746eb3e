package postgres

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nicolasparada/go-db"
	"github.com/studyhallhq/studyhall/errs"
	"github.com/studyhallhq/studyhall/id"
	"github.com/studyhallhq/studyhall/types"
)

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// CreateGroupChat creates the group chat of a course together with its
// initial participant rows. The creator is always a participant.
func (p *Postgres) CreateGroupChat(ctx context.Context, in types.CreateGroupChat) (types.Created, error) {
	var out types.Created

	userIDs := append(slices.Clone(in.UserIDs), in.LoggedInUserID())
	slices.Sort(userIDs)
	userIDs = slices.Compact(userIDs)

	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		const q = `
			INSERT INTO chats (id, is_group, course_id)
			VALUES (@chat_id, true, @course_id)
			RETURNING id, created_at
		`
		rows, err := p.db.Query(ctx, q, pgx.NamedArgs{
			"chat_id":   id.Generate(),
			"course_id": in.CourseID,
		})
		if err != nil {
			return fmt.Errorf("sql insert chat: %w", err)
		}

		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Created])
		if isUniqueViolation(err) {
			return errs.NewAlreadyExistsError("CourseID", "course already has a group chat")
		}
		if err != nil {
			return fmt.Errorf("sql collect created chat: %w", err)
		}

		return p.addParticipants(ctx, out.ID, userIDs)
	})
}

// CreatePrivateChat creates a one-to-one chat. It does not enforce
// uniqueness of the pair; callers that want find-or-create semantics
// check PrivateChatBetween first.
func (p *Postgres) CreatePrivateChat(ctx context.Context, in types.CreatePrivateChat) (types.Created, error) {
	var out types.Created

	return out, p.db.RunTx(ctx, func(ctx context.Context) error {
		const q = `
			INSERT INTO chats (id, is_group, course_id)
			VALUES (@chat_id, false, @course_id)
			RETURNING id, created_at
		`
		rows, err := p.db.Query(ctx, q, pgx.NamedArgs{
			"chat_id":   id.Generate(),
			"course_id": in.CourseID,
		})
		if err != nil {
			return fmt.Errorf("sql insert private chat: %w", err)
		}

		out, err = pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Created])
		if err != nil {
			return fmt.Errorf("sql collect created private chat: %w", err)
		}

		return p.addParticipants(ctx, out.ID, []string{in.LoggedInUserID(), in.OtherUserID})
	})
}

func (p *Postgres) addParticipants(ctx context.Context, chatID string, userIDs []string) error {
	const q = `
		INSERT INTO participants (chat_id, user_id)
		SELECT @chat_id, unnest(@user_ids::VARCHAR[])
		ON CONFLICT (chat_id, user_id) DO NOTHING
	`
	_, err := p.db.Exec(ctx, q, pgx.NamedArgs{
		"chat_id":  chatID,
		"user_ids": userIDs,
	})
	if err != nil {
		return fmt.Errorf("sql insert participants: %w", err)
	}
	return nil
}

// PrivateChatBetween finds the existing one-to-one chat of two users,
// if any.
func (p *Postgres) PrivateChatBetween(ctx context.Context, userID, otherUserID string) (types.Chat, error) {
	const q = `
		SELECT chats.*,
			(
				SELECT array_agg(p.user_id ORDER BY p.joined_at)
				FROM participants AS p
				WHERE p.chat_id = chats.id
			) AS user_ids
		FROM chats
		WHERE NOT chats.is_group
		AND EXISTS (SELECT 1 FROM participants WHERE chat_id = chats.id AND user_id = @user_id)
		AND EXISTS (SELECT 1 FROM participants WHERE chat_id = chats.id AND user_id = @other_user_id)
		AND (SELECT count(*) FROM participants WHERE chat_id = chats.id) = 2
		ORDER BY chats.created_at
		LIMIT 1
	`
	rows, err := p.db.Query(ctx, q, pgx.NamedArgs{
		"user_id":       userID,
		"other_user_id": otherUserID,
	})
	if err != nil {
		return types.Chat{}, fmt.Errorf("sql select private chat: %w", err)
	}

	chat, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Chat])
	if db.IsNotFoundError(err) {
		return types.Chat{}, errs.NewNotFoundError("chat not found")
	}
	if err != nil {
		return types.Chat{}, fmt.Errorf("sql collect private chat: %w", err)
	}

	return chat, nil
}

// Chat returns one chat from the point of view of a participant,
// including their unread counter. Non-participants get a not found.
func (p *Postgres) Chat(ctx context.Context, in types.RetrieveChat) (types.Chat, error) {
	const q = `
		SELECT chats.*,
			me.unread_count,
			(
				SELECT array_agg(p.user_id ORDER BY p.joined_at)
				FROM participants AS p
				WHERE p.chat_id = chats.id
			) AS user_ids
		FROM chats
		INNER JOIN participants AS me ON me.chat_id = chats.id AND me.user_id = @user_id
		WHERE chats.id = @chat_id
	`
	rows, err := p.db.Query(ctx, q, pgx.NamedArgs{
		"chat_id": in.ChatID,
		"user_id": in.LoggedInUserID(),
	})
	if err != nil {
		return types.Chat{}, fmt.Errorf("sql select chat: %w", err)
	}

	chat, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByNameLax[types.Chat])
	if db.IsNotFoundError(err) {
		return types.Chat{}, errs.NewNotFoundError("chat not found")
	}
	if err != nil {
		return types.Chat{}, fmt.Errorf("sql collect chat: %w", err)
	}

	return chat, nil
}

// Chats lists the caller's chats ordered by recent activity, each with
// its last message and the caller's unread counter.
func (p *Postgres) Chats(ctx context.Context, in types.ListChats) ([]types.Chat, error) {
	const q = `
		SELECT chats.*,
			me.unread_count,
			(
				SELECT array_agg(p.user_id ORDER BY p.joined_at)
				FROM participants AS p
				WHERE p.chat_id = chats.id
			) AS user_ids,
			CASE WHEN last_message.id IS NULL THEN NULL ELSE json_build_object(
				'id', last_message.id,
				'chatId', chats.id,
				'userId', last_message.user_id,
				'content', last_message.content,
				'createdAt', last_message.created_at
			) END AS last_message
		FROM chats
		INNER JOIN participants AS me ON me.chat_id = chats.id AND me.user_id = @user_id
		LEFT JOIN LATERAL (
			SELECT messages.id, messages.user_id, messages.content, messages.created_at
			FROM messages
			WHERE messages.chat_id = chats.id
			ORDER BY messages.created_at DESC, messages.id DESC
			LIMIT 1
		) AS last_message ON true
		ORDER BY coalesce(last_message.created_at, chats.created_at) DESC
	`
	rows, err := p.db.Query(ctx, q, pgx.NamedArgs{
		"user_id": in.LoggedInUserID(),
	})
	if err != nil {
		return nil, fmt.Errorf("sql select chats: %w", err)
	}

	chats, err := pgx.CollectRows(rows, pgx.RowToStructByNameLax[types.Chat])
	if err != nil {
		return nil, fmt.Errorf("sql collect chats: %w", err)
	}

	return chats, nil
}

// ParticipantUserIDs returns the user IDs of a chat's roster.
func (p *Postgres) ParticipantUserIDs(ctx context.Context, chatID string) ([]string, error) {
	const q = `
		SELECT user_id FROM participants
		WHERE chat_id = @chat_id
		ORDER BY joined_at
	`
	rows, err := p.db.Query(ctx, q, pgx.NamedArgs{"chat_id": chatID})
	if err != nil {
		return nil, fmt.Errorf("sql select participant user ids: %w", err)
	}

	userIDs, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("sql collect participant user ids: %w", err)
	}

	return userIDs, nil
}

func (p *Postgres) IsParticipant(ctx context.Context, chatID, userID string) (bool, error) {
	const q = `
		SELECT EXISTS (
			SELECT 1 FROM participants
			WHERE chat_id = $1 AND user_id = $2
		)
	`
	var exists bool
	if err := p.db.QueryRow(ctx, q, chatID, userID).Scan(&exists); err != nil {
		return false, fmt.Errorf("sql select participant existence: %w", err)
	}
	return exists, nil
}

// AddParticipant enrolls a user into a chat. Re-adding an existing
// participant is a no-op and keeps their unread counter.
func (p *Postgres) AddParticipant(ctx context.Context, in types.AddParticipant) error {
	return p.db.RunTx(ctx, func(ctx context.Context) error {
		if err := p.ensureParticipant(ctx, in.ChatID, in.LoggedInUserID()); err != nil {
			return err
		}

		return p.addParticipants(ctx, in.ChatID, []string{in.UserID})
	})
}

// RemoveParticipant drops a user from a chat along with their unread
// counter.
func (p *Postgres) RemoveParticipant(ctx context.Context, in types.RemoveParticipant) error {
	return p.db.RunTx(ctx, func(ctx context.Context) error {
		if err := p.ensureParticipant(ctx, in.ChatID, in.LoggedInUserID()); err != nil {
			return err
		}

		const q = `
			DELETE FROM participants
			WHERE chat_id = @chat_id AND user_id = @user_id
		`
		_, err := p.db.Exec(ctx, q, pgx.NamedArgs{
			"chat_id": in.ChatID,
			"user_id": in.UserID,
		})
		if err != nil {
			return fmt.Errorf("sql delete participant: %w", err)
		}
		return nil
	})
}

// DeleteChat removes the chat; messages and participant rows cascade.
func (p *Postgres) DeleteChat(ctx context.Context, in types.DeleteChat) error {
	return p.db.RunTx(ctx, func(ctx context.Context) error {
		if err := p.ensureParticipant(ctx, in.ChatID, in.LoggedInUserID()); err != nil {
			return err
		}

		_, err := p.db.Exec(ctx, "DELETE FROM chats WHERE id = $1", in.ChatID)
		if err != nil {
			return fmt.Errorf("sql delete chat: %w", err)
		}
		return nil
	})
}
