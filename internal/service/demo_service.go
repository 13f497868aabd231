package service

import (
	_ "embed"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"forum-api/internal/domain"
)

const (
	DebateSidePro = "pro"
	DebateSideCon = "con"

	defaultReviewRating = 5
)

//go:embed fixtures/demo.yaml
var demoYAML []byte

type demoFixture struct {
	Communities []domain.Community `yaml:"communities"`
	Debates     []domain.Debate    `yaml:"debates"`
	Mentors     []domain.Mentor    `yaml:"mentors"`
}

// DemoService guarda comunidades, debates y mentores en memoria.
// Todo lo que devuelve es una copia.
type DemoService struct {
	mu          sync.Mutex
	communities []domain.Community
	debates     []domain.Debate
	mentors     []domain.Mentor
	now         func() time.Time
}

// NewDemoService carga los datos iniciales desde el fixture embebido.
func NewDemoService() (*DemoService, error) {
	return newDemoServiceFromYAML(demoYAML)
}

func newDemoServiceFromYAML(raw []byte) (*DemoService, error) {
	var fx demoFixture
	if err := yaml.Unmarshal(raw, &fx); err != nil {
		return nil, fmt.Errorf("parse demo fixture: %w", err)
	}
	s := &DemoService{
		communities: fx.Communities,
		debates:     fx.Debates,
		mentors:     fx.Mentors,
		now:         func() time.Time { return time.Now().UTC() },
	}
	start := s.now()
	for i := range s.debates {
		s.debates[i].Comments = []domain.DebateComment{}
		s.debates[i].CreatedAt = start
	}
	for i := range s.mentors {
		s.mentors[i].Reviews = []domain.MentorReview{}
	}
	return s, nil
}

func (s *DemoService) Communities() []domain.Community {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Community, len(s.communities))
	copy(out, s.communities)
	return out
}

func (s *DemoService) Debates() []domain.Debate {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Debate, 0, len(s.debates))
	for _, d := range s.debates {
		out = append(out, copyDebate(d))
	}
	return out
}

// CreateDebate agrega el debate al principio de la lista.
func (s *DemoService) CreateDebate(topic string) (domain.Debate, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return domain.Debate{}, invalid("Topic required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	d := domain.Debate{
		ID:        uuid.NewString(),
		Topic:     topic,
		Comments:  []domain.DebateComment{},
		CreatedAt: s.now(),
	}
	s.debates = append([]domain.Debate{d}, s.debates...)
	return copyDebate(d), nil
}

func (s *DemoService) VoteDebate(id, side string) (domain.Debate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDebate(id)
	if d == nil {
		return domain.Debate{}, ErrDebateNotFound
	}
	switch strings.ToLower(strings.TrimSpace(side)) {
	case DebateSidePro:
		d.Pro++
	case DebateSideCon:
		d.Con++
	default:
		return domain.Debate{}, invalid("side must be 'pro' or 'con'")
	}
	return copyDebate(*d), nil
}

func (s *DemoService) CommentDebate(id, author, text string) (domain.Debate, domain.DebateComment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d := s.findDebate(id)
	if d == nil {
		return domain.Debate{}, domain.DebateComment{}, ErrDebateNotFound
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.Debate{}, domain.DebateComment{}, invalid("Comment text required")
	}
	c := domain.DebateComment{
		ID:        uuid.NewString(),
		Author:    orDefault(author, DefaultCommentAuthor),
		Text:      text,
		CreatedAt: s.now(),
	}
	d.Comments = append(d.Comments, c)
	return copyDebate(*d), c, nil
}

func (s *DemoService) Mentors() []domain.Mentor {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.Mentor, 0, len(s.mentors))
	for _, m := range s.mentors {
		out = append(out, copyMentor(m))
	}
	return out
}

// RequestMentor solo confirma que el mentor existe; no guarda nada.
func (s *DemoService) RequestMentor(id string) (domain.Mentor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findMentor(id)
	if m == nil {
		return domain.Mentor{}, ErrMentorNotFound
	}
	return copyMentor(*m), nil
}

// ReviewMentor acepta rating 1..5 (fracciones incluidas); 0 significa "sin rating" y vale 5.
func (s *DemoService) ReviewMentor(id, author string, rating float64, text string) (domain.Mentor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findMentor(id)
	if m == nil {
		return domain.Mentor{}, ErrMentorNotFound
	}
	if rating == 0 || math.IsNaN(rating) {
		rating = defaultReviewRating
	}
	if rating < 1 || rating > 5 {
		return domain.Mentor{}, invalid("rating must be between 1 and 5")
	}
	m.Reviews = append(m.Reviews, domain.MentorReview{
		ID:     uuid.NewString(),
		Author: orDefault(author, DefaultCommentAuthor),
		Rating: rating,
		Text:   strings.TrimSpace(text),
	})
	return copyMentor(*m), nil
}

func (s *DemoService) findDebate(id string) *domain.Debate {
	for i := range s.debates {
		if s.debates[i].ID == id {
			return &s.debates[i]
		}
	}
	return nil
}

func (s *DemoService) findMentor(id string) *domain.Mentor {
	for i := range s.mentors {
		if s.mentors[i].ID == id {
			return &s.mentors[i]
		}
	}
	return nil
}

func copyDebate(d domain.Debate) domain.Debate {
	comments := make([]domain.DebateComment, len(d.Comments))
	copy(comments, d.Comments)
	d.Comments = comments
	return d
}

func copyMentor(m domain.Mentor) domain.Mentor {
	reviews := make([]domain.MentorReview, len(m.Reviews))
	copy(reviews, m.Reviews)
	m.Reviews = reviews
	return m
}
