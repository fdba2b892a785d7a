package controllers

import (
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/dmitrymomot/hero"
	"github.com/dmitrymomot/hero/example/requests"
	"github.com/dmitrymomot/hero/pkg/envelope"
	"github.com/dmitrymomot/hero/pkg/id"
)

// Contact is a stored contact.
type Contact struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// ContactStore keeps contacts in memory.
type ContactStore struct {
	contacts []Contact
	mu       sync.RWMutex
}

func (s *ContactStore) Add(c Contact) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contacts = append(s.contacts, c)
}

func (s *ContactStore) Find(contactID string) (Contact, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := slices.IndexFunc(s.contacts, func(c Contact) bool { return c.ID == contactID })
	if i < 0 {
		return Contact{}, false
	}
	return s.contacts[i], true
}

// Page returns one page of contacts and the total count.
func (s *ContactStore) Page(page, size int) ([]Contact, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := len(s.contacts)
	from := min(max(page-1, 0)*size, total)
	to := min(from+size, total)
	return slices.Clone(s.contacts[from:to]), total
}

// ContactController serves the contacts API.
type ContactController struct {
	Store    *ContactStore `inject:""`
	PageSize int           `value:"contacts.page_size"`
}

func (c *ContactController) Routes(r hero.Router) {
	r.Route("/contacts", func(r hero.Router) {
		r.GET("", "List", hero.Query("page", "1"))
		r.GET("/{id}", "Show", hero.Path("id"))
		r.POST("/add", "Create", hero.Body())
	})
}

// Middlewares bounds and rate limits the contacts routes.
func (c *ContactController) Middlewares() []string {
	return []string{"Timeout", "RateLimit"}
}

// Init runs on the shared controller for every request; it only checks
// wiring and leaves fields alone.
func (c *ContactController) Init() error {
	if c.Store == nil {
		return hero.ErrInternal("contact store is not configured")
	}
	return nil
}

func (c *ContactController) pageSize() int {
	if c.PageSize <= 0 {
		return 20
	}
	return c.PageSize
}

func (c *ContactController) List(page int) *envelope.List {
	size := c.pageSize()
	items, total := c.Store.Page(page, size)
	return envelope.NewList(http.StatusOK, "", items).Paginate(page, size, total)
}

func (c *ContactController) Show(contactID string) (envelope.One, error) {
	contact, ok := c.Store.Find(contactID)
	if !ok {
		return envelope.One{}, hero.ErrNotFound("contact not found")
	}
	return envelope.NewOne(http.StatusOK, "", contact), nil
}

func (c *ContactController) Create(in requests.CreateContactRequest) (*hero.Response, error) {
	contact := Contact{
		ID:        id.NewULID(),
		Name:      strings.TrimSpace(in.Name),
		Email:     strings.ToLower(in.Email),
		CreatedAt: time.Now().UTC(),
	}
	c.Store.Add(contact)
	return hero.JSON(http.StatusCreated, envelope.NewOne(http.StatusCreated, "contact created", contact))
}
