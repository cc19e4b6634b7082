package repo

import (
	"context"
	"database/sql"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"

	"github.com/starscout/starscout/internal/model"
	"github.com/starscout/starscout/internal/pkg/dbutil"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

type RepositoryRepo struct {
	db *sql.DB
}

func NewRepositoryRepo(db *sql.DB) *RepositoryRepo {
	return &RepositoryRepo{db: db}
}

// Insert persists one indexed repository with its embedding. Rows are written
// once per id; a conflict means another run already indexed it.
func (r *RepositoryRepo) Insert(ctx context.Context, repo *model.Repository) error {
	const query = `
		INSERT INTO repositories (id, name, owner, description, readme_content, homepage_url, topics, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	topics := repo.Topics
	if topics == nil {
		topics = []string{}
	}
	_, err := r.db.ExecContext(ctx, query,
		repo.ID,
		repo.Name,
		repo.Owner.Login,
		nullString(repo.Description),
		repo.ReadmeContent,
		repo.URL,
		pq.Array(topics),
		pgvector.NewVector(repo.Embedding),
	)
	if err != nil {
		if dbutil.IsConflict(err) {
			return appErr.ErrConflict
		}
		return err
	}
	return nil
}

// FilterUnindexed returns the subset of repos absent from both the index and
// the no-readme marker table. Pure read; empty input short-circuits without a
// query.
func (r *RepositoryRepo) FilterUnindexed(ctx context.Context, repos []model.Repository) ([]model.Repository, error) {
	if len(repos) == 0 {
		return nil, nil
	}
	ids := make([]int64, 0, len(repos))
	for _, repo := range repos {
		ids = append(ids, repo.ID)
	}
	const query = `
		SELECT id
		FROM (
			SELECT id FROM repositories
			UNION
			SELECT id FROM repos_without_readme
		) existing_repos
		WHERE id = ANY($1)
	`
	rows, err := r.db.QueryContext(ctx, query, pq.Array(ids))
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	existing := make(map[int64]struct{})
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		existing[id] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	var missing []model.Repository
	for _, repo := range repos {
		if _, ok := existing[repo.ID]; !ok {
			missing = append(missing, repo)
		}
	}
	return missing, nil
}

// Search ranks indexed repositories by cosine similarity to queryVec. A
// non-empty repoIDs restricts the scan to those ids.
func (r *RepositoryRepo) Search(ctx context.Context, queryVec []float32, repoIDs []int64, limit int) ([]model.Repository, error) {
	query := `
		SELECT id, name, owner, description, topics, homepage_url,
		       1 - (embedding <=> $1) AS cosine_similarity
		FROM repositories
	`
	args := []interface{}{pgvector.NewVector(queryVec)}
	if len(repoIDs) > 0 {
		query += ` WHERE id = ANY($2) ORDER BY cosine_similarity DESC LIMIT $3`
		args = append(args, pq.Array(repoIDs), limit)
	} else {
		query += ` ORDER BY cosine_similarity DESC LIMIT $2`
		args = append(args, limit)
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()
	var results []model.Repository
	for rows.Next() {
		var (
			item        model.Repository
			owner       string
			description sql.NullString
			topics      pq.StringArray
			homepageURL sql.NullString
			similarity  float64
		)
		if err := rows.Scan(&item.ID, &item.Name, &owner, &description, &topics, &homepageURL, &similarity); err != nil {
			return nil, err
		}
		item.FullName = owner + "/" + item.Name
		item.Similarity = similarity
		item.Description = description.String
		item.Topics = topics
		item.URL = homepageURL.String
		item.Owner = model.RepositoryOwner{
			Login:     owner,
			AvatarURL: model.AvatarURLForLogin(owner),
		}
		results = append(results, item)
	}
	return results, rows.Err()
}

func nullString(value string) sql.NullString {
	return sql.NullString{String: value, Valid: value != ""}
}
