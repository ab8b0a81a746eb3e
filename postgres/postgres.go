package postgres

import (
	"context"
	"embed"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nicolasparada/go-db"
	"github.com/studyhallhq/studyhall/errs"
)

//go:embed migrations/*.sql
var MigrationsFS embed.FS

type Postgres struct {
	db *db.DB
}

func New(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		db: db.New(pool),
	}
}

// ensureParticipant distinguishes a missing chat from a caller that
// simply does not belong to it.
func (p *Postgres) ensureParticipant(ctx context.Context, chatID, userID string) error {
	var chatExists, isParticipant bool

	const q = `
		SELECT EXISTS (SELECT 1 FROM chats WHERE id = $1),
			   EXISTS (SELECT 1 FROM participants WHERE chat_id = $1 AND user_id = $2)
	`

	if err := p.db.QueryRow(ctx, q, chatID, userID).Scan(&chatExists, &isParticipant); err != nil {
		return err
	}

	if !chatExists {
		return errs.NewNotFoundError("chat not found")
	}
	if !isParticipant {
		return errs.NewPermissionDeniedError("not a chat participant")
	}

	return nil
}
