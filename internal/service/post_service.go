package service

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"forum-api/internal/domain"
	"forum-api/internal/repository"
)

const (
	DefaultPostAuthor    = "Anonymous"
	DefaultCommentAuthor = "Anon"
	DefaultCommunitySlug = "general"

	seedPostSpacing = 2 * time.Hour
)

//go:embed fixtures/seed_posts.yaml
var seedPostsYAML []byte

type seedPost struct {
	Title     string        `yaml:"title"`
	Body      string        `yaml:"body"`
	Author    string        `yaml:"author"`
	Community string        `yaml:"community"`
	Upvotes   int           `yaml:"upvotes"`
	Comments  []seedComment `yaml:"comments"`
}

type seedComment struct {
	Author string `yaml:"author"`
	Text   string `yaml:"text"`
}

// PostService maneja el feed de publicaciones.
type PostService struct {
	logger *zap.Logger
	posts  repository.PostRepository
	now    func() time.Time
}

func NewPostService(logger *zap.Logger, posts repository.PostRepository) *PostService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PostService{
		logger: logger,
		posts:  posts,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

type CreatePostInput struct {
	Title         string
	Body          string
	Author        string
	CommunitySlug string
}

func (s *PostService) List(ctx context.Context) ([]domain.Post, error) {
	posts, err := s.posts.List(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []domain.Post{}
	}
	return posts, nil
}

func (s *PostService) Create(ctx context.Context, input CreatePostInput) (domain.Post, error) {
	title := strings.TrimSpace(input.Title)
	body := strings.TrimSpace(input.Body)
	if title == "" || body == "" {
		return domain.Post{}, invalid("title and body are required")
	}
	now := s.now()
	post := domain.Post{
		ID:            uuid.NewString(),
		Title:         title,
		Body:          body,
		Author:        orDefault(input.Author, DefaultPostAuthor),
		CommunitySlug: orDefault(input.CommunitySlug, DefaultCommunitySlug),
		Comments:      []domain.Comment{},
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.posts.Create(ctx, post); err != nil {
		return domain.Post{}, err
	}
	return post, nil
}

func (s *PostService) Upvote(ctx context.Context, id string) (domain.Post, error) {
	post, err := s.posts.Upvote(ctx, id, s.now())
	return post, mapPostErr(err)
}

// Downvote nunca deja los votos por debajo de cero.
func (s *PostService) Downvote(ctx context.Context, id string) (domain.Post, error) {
	post, err := s.posts.Downvote(ctx, id, s.now())
	return post, mapPostErr(err)
}

func (s *PostService) AddComment(ctx context.Context, postID, author, text string) (domain.Post, domain.Comment, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Post{}, domain.Comment{}, invalid("comment text required")
	}
	now := s.now()
	comment := domain.Comment{
		ID:        uuid.NewString(),
		PostID:    postID,
		Author:    orDefault(author, DefaultCommentAuthor),
		Text:      text,
		CreatedAt: now,
		UpdatedAt: now,
	}
	post, err := s.posts.AddComment(ctx, comment)
	if err != nil {
		return domain.Post{}, domain.Comment{}, mapPostErr(err)
	}
	return post, comment, nil
}

// Seed reemplaza todas las publicaciones por el set de ejemplo, separadas cada 2 horas.
func (s *PostService) Seed(ctx context.Context) ([]domain.Post, error) {
	var samples []seedPost
	if err := yaml.Unmarshal(seedPostsYAML, &samples); err != nil {
		return nil, fmt.Errorf("parse seed posts: %w", err)
	}
	now := s.now()
	posts := make([]domain.Post, 0, len(samples))
	for i, sp := range samples {
		at := now.Add(-time.Duration(i) * seedPostSpacing)
		post := domain.Post{
			ID:            uuid.NewString(),
			Title:         sp.Title,
			Body:          sp.Body,
			Author:        orDefault(sp.Author, DefaultPostAuthor),
			CommunitySlug: orDefault(sp.Community, DefaultCommunitySlug),
			Upvotes:       sp.Upvotes,
			Comments:      make([]domain.Comment, 0, len(sp.Comments)),
			CreatedAt:     at,
			UpdatedAt:     at,
		}
		for _, sc := range sp.Comments {
			post.Comments = append(post.Comments, domain.Comment{
				ID:        uuid.NewString(),
				PostID:    post.ID,
				Author:    orDefault(sc.Author, DefaultCommentAuthor),
				Text:      sc.Text,
				CreatedAt: at,
				UpdatedAt: at,
			})
		}
		posts = append(posts, post)
	}
	if err := s.posts.ReplaceAll(ctx, posts); err != nil {
		return nil, err
	}
	s.logger.Info("seeded sample posts", zap.Int("count", len(posts)))
	return posts, nil
}

func mapPostErr(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrPostNotFound
	}
	return err
}

func orDefault(value, fallback string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return fallback
	}
	return value
}
