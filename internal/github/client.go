package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/starscout/starscout/internal/model"
	appErr "github.com/starscout/starscout/internal/pkg/errors"
)

// pageWindow is the number of star pages requested concurrently per round.
const pageWindow = 10

var lastPageRegex = regexp.MustCompile(`page=(\d+)>; rel="last"`)

type Client struct {
	token   string
	baseURL string
	client  *http.Client
}

func NewClient(token, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.github.com"
	}
	return &Client{
		token:   token,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// ReadmeResult distinguishes a repository without a README (Found=false,
// Err=nil) from one whose fetch failed.
type ReadmeResult struct {
	Content string
	Found   bool
	Err     error
}

type repoPayload struct {
	ID              int64      `json:"id"`
	Name            string     `json:"name"`
	FullName        string     `json:"full_name"`
	Description     string     `json:"description"`
	HTMLURL         string     `json:"html_url"`
	StargazersCount int        `json:"stargazers_count"`
	Topics          []string   `json:"topics"`
	CreatedAt       *time.Time `json:"created_at"`
	UpdatedAt       *time.Time `json:"updated_at"`
	Owner           struct {
		Login     string `json:"login"`
		AvatarURL string `json:"avatar_url"`
	} `json:"owner"`
}

func (p repoPayload) toModel() model.Repository {
	return model.Repository{
		ID:          p.ID,
		Name:        p.Name,
		FullName:    p.FullName,
		Description: p.Description,
		Topics:      p.Topics,
		URL:         p.HTMLURL,
		Stars:       p.StargazersCount,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Owner: model.RepositoryOwner{
			Login:     p.Owner.Login,
			AvatarURL: p.Owner.AvatarURL,
		},
	}
}

// ListStarred pages through the authenticated user's stars in concurrent
// windows of pageWindow requests. A short or empty page ends pagination once
// its window drains; a failed page is logged and dropped. Source order
// (reverse-chronological by star date) is preserved, no page is requested
// twice.
func (c *Client) ListStarred(ctx context.Context, perPage int) ([]model.Repository, error) {
	if perPage <= 0 {
		perPage = 100
	}
	logger := logutil.GetLogger(ctx)
	var all []model.Repository
	for page := 1; ; page += pageWindow {
		pages := make([][]model.Repository, pageWindow)
		errs := make([]error, pageWindow)
		var wg sync.WaitGroup
		for i := 0; i < pageWindow; i++ {
			wg.Add(1)
			go func(slot int) {
				defer wg.Done()
				pages[slot], errs[slot] = c.starredPage(ctx, page+slot, perPage)
			}(i)
		}
		wg.Wait()

		hasMore := false
		for i := 0; i < pageWindow; i++ {
			if errs[i] != nil {
				if appErr.IsUnauthorized(errs[i]) {
					return nil, errs[i]
				}
				logger.Error("starred page fetch failed",
					zap.Int("page", page+i), zap.Error(errs[i]))
				continue
			}
			if len(pages[i]) == 0 {
				hasMore = false
				break
			}
			all = append(all, pages[i]...)
			if len(pages[i]) == perPage {
				hasMore = true
			} else {
				hasMore = false
				break
			}
		}
		if !hasMore {
			return all, nil
		}
	}
}

func (c *Client) starredPage(ctx context.Context, page, perPage int) ([]model.Repository, error) {
	params := url.Values{}
	params.Set("sort", "created")
	params.Set("direction", "desc")
	params.Set("per_page", strconv.Itoa(perPage))
	params.Set("page", strconv.Itoa(page))
	endpoint := c.baseURL + "/user/starred?" + params.Encode()

	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}
	var payloads []repoPayload
	if err := json.NewDecoder(resp.Body).Decode(&payloads); err != nil {
		return nil, err
	}
	repos := make([]model.Repository, 0, len(payloads))
	for _, p := range payloads {
		repos = append(repos, p.toModel())
	}
	return repos, nil
}

// FetchReadmes fetches every repository's README concurrently. Entries are
// keyed by "owner/name"; a malformed name yields an Err entry without issuing
// a request.
func (c *Client) FetchReadmes(ctx context.Context, fullNames []string) map[string]ReadmeResult {
	results := make([]ReadmeResult, len(fullNames))
	var wg sync.WaitGroup
	for i, fullName := range fullNames {
		owner, name, ok := splitFullName(fullName)
		if !ok {
			results[i] = ReadmeResult{Err: fmt.Errorf("%w: repository name %q", appErr.ErrInvalid, fullName)}
			continue
		}
		wg.Add(1)
		go func(slot int, owner, name string) {
			defer wg.Done()
			results[slot] = c.readme(ctx, owner, name)
		}(i, owner, name)
	}
	wg.Wait()

	out := make(map[string]ReadmeResult, len(fullNames))
	for i, fullName := range fullNames {
		out[fullName] = results[i]
	}
	return out
}

func (c *Client) readme(ctx context.Context, owner, name string) ReadmeResult {
	endpoint := fmt.Sprintf("%s/repos/%s/%s/readme", c.baseURL, owner, name)
	resp, err := c.get(ctx, endpoint)
	if err != nil {
		return ReadmeResult{Err: err}
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode == http.StatusNotFound {
		return ReadmeResult{Found: false}
	}
	if err := c.checkStatus(resp); err != nil {
		return ReadmeResult{Err: err}
	}
	var payload struct {
		Content string `json:"content"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return ReadmeResult{Err: err}
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(payload.Content, "\n", ""))
	if err != nil {
		return ReadmeResult{Err: fmt.Errorf("decode readme for %s/%s: %w", owner, name, err)}
	}
	return ReadmeResult{Content: string(decoded), Found: true}
}

// GetUser resolves the identity behind the configured token.
func (c *Client) GetUser(ctx context.Context) (*model.GithubUser, error) {
	resp, err := c.get(ctx, c.baseURL+"/user")
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.checkStatus(resp); err != nil {
		return nil, err
	}
	var payload struct {
		ID        int64     `json:"id"`
		Login     string    `json:"login"`
		Following int       `json:"following"`
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return &model.GithubUser{
		UserID:    strconv.FormatInt(payload.ID, 10),
		Username:  payload.Login,
		Following: payload.Following,
		CreatedAt: payload.CreatedAt,
	}, nil
}

// StarredCount estimates the total star count from the Link header's
// rel="last" page number on a per_page=1 request, avoiding a full scan.
func (c *Client) StarredCount(ctx context.Context) (int, error) {
	resp, err := c.get(ctx, c.baseURL+"/user/starred?per_page=1")
	if err != nil {
		return 0, err
	}
	defer func() { _ = resp.Body.Close() }()
	if err := c.checkStatus(resp); err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	link := resp.Header.Get("Link")
	if link == "" {
		return 0, nil
	}
	matches := lastPageRegex.FindStringSubmatch(link)
	if matches == nil {
		return 0, nil
	}
	count, err := strconv.Atoi(matches[1])
	if err != nil {
		return 0, nil
	}
	return count, nil
}

func (c *Client) get(ctx context.Context, endpoint string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.client.Do(req)
}

func (c *Client) checkStatus(resp *http.Response) error {
	switch {
	case resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices:
		return nil
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: github returned %s", appErr.ErrUnauthorized, resp.Status)
	default:
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: github api error %s: %s", appErr.ErrTransient, resp.Status, strings.TrimSpace(string(body)))
	}
}

func splitFullName(fullName string) (owner, name string, ok bool) {
	parts := strings.Split(fullName, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
