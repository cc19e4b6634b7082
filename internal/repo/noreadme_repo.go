package repo

import (
	"context"
	"database/sql"

	"github.com/didi/gendry/builder"

	"github.com/starscout/starscout/internal/model"
	"github.com/starscout/starscout/internal/pkg/dbutil"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

// NoReadmeRepo records repositories whose documentation could not be found,
// so later runs skip them without another fetch attempt.
type NoReadmeRepo struct {
	db *sql.DB
}

func NewNoReadmeRepo(db *sql.DB) *NoReadmeRepo {
	return &NoReadmeRepo{db: db}
}

func (r *NoReadmeRepo) Insert(ctx context.Context, repo *model.Repository) error {
	data := map[string]interface{}{
		"id":    repo.ID,
		"name":  repo.Name,
		"owner": repo.Owner.Login,
	}
	sqlStr, args, err := builder.BuildInsert("repos_without_readme", []map[string]interface{}{data})
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = r.db.ExecContext(ctx, sqlStr, args...)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}
