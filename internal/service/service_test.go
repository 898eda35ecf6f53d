package service

import (
	"context"
	"testing"
	"time"

	"github.com/Riddimental/Backend-Noctra/internal/domain"
	"github.com/Riddimental/Backend-Noctra/internal/events"
	"github.com/Riddimental/Backend-Noctra/internal/repository"
	"github.com/Riddimental/Backend-Noctra/pkg/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// harness wires every service over one in-memory store
type harness struct {
	t            *testing.T
	store        *repository.Store
	events       *events.Recorder
	media        *fakeMedia
	graph        GraphService
	content      ContentService
	tickets      TicketService
	reservations ReservationService
}

type harnessOption func(*harnessConfig)

type harnessConfig struct {
	ticketing TicketServiceConfig
	soldOut   SoldOutCache
	memo      PurchaseMemo
	store     *repository.Store
	wrapStore func(*repository.Store)
}

func withTicketing(cfg TicketServiceConfig) harnessOption {
	return func(c *harnessConfig) { c.ticketing = cfg }
}

func withSoldOut(cache SoldOutCache) harnessOption {
	return func(c *harnessConfig) { c.soldOut = cache }
}

func withMemo(memo PurchaseMemo) harnessOption {
	return func(c *harnessConfig) { c.memo = memo }
}

// withBackingStore runs the services over s instead of a fresh memory store
func withBackingStore(s *repository.Store) harnessOption {
	return func(c *harnessConfig) { c.store = s }
}

func withStore(fn func(*repository.Store)) harnessOption {
	return func(c *harnessConfig) { c.wrapStore = fn }
}

func newHarness(t *testing.T, opts ...harnessOption) *harness {
	t.Helper()
	cfg := harnessConfig{ticketing: TicketServiceConfig{MaxPurchaseRetries: 5, ValidityWindow: 6 * time.Hour, CodeLength: 8}}
	for _, o := range opts {
		o(&cfg)
	}
	metrics, err := telemetry.NewMetrics()
	require.NoError(t, err)

	store := cfg.store
	if store == nil {
		store = repository.NewMemoryStore()
	}
	if cfg.wrapStore != nil {
		cfg.wrapStore(store)
	}
	rec := &events.Recorder{}
	media := &fakeMedia{}
	return &harness{
		t:            t,
		store:        store,
		events:       rec,
		media:        media,
		graph:        NewGraphService(store, rec, metrics, 2),
		content:      NewContentService(store, media, rec, metrics, 1<<20),
		tickets:      NewTicketService(store, cfg.ticketing, cfg.soldOut, cfg.memo, rec, metrics),
		reservations: NewReservationService(store, rec),
	}
}

func (h *harness) profile(userID string) *domain.Profile {
	h.t.Helper()
	p, err := h.graph.CreateProfile(context.Background(), CreateProfileInput{UserID: userID, Username: userID})
	require.NoError(h.t, err)
	return p
}

func (h *harness) club(creator, name string) *domain.Club {
	h.t.Helper()
	c, err := h.graph.CreateClub(context.Background(), creator, CreateClubInput{Name: name, MainLocation: "Downtown"})
	require.NoError(h.t, err)
	return c
}

func (h *harness) event(creator string, club *domain.Club, total int, price string) *domain.Event {
	h.t.Helper()
	ev, err := h.tickets.CreateEvent(context.Background(), creator, club.ID, domain.NewEventInput{
		Name:         "Friday " + uuid.New().String()[:8],
		StartsAt:     time.Now().Add(24 * time.Hour),
		Price:        decimal.RequireFromString(price),
		TotalTickets: total,
	})
	require.NoError(h.t, err)
	return ev
}

func (h *harness) textPost(actor string, owner domain.Owner, text string) *domain.Post {
	h.t.Helper()
	p, err := h.content.CreatePost(context.Background(), actor, CreatePostInput{
		Owner:       owner,
		ContentType: "text",
		Payload:     domain.PostPayload{Text: text},
	})
	require.NoError(h.t, err)
	return p
}

// uniqueName keeps seeded names apart across runs against a shared database
func uniqueName(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}

type fakeMedia struct {
	refs []string
	err  error
}

func (f *fakeMedia) Put(_ context.Context, upload *domain.MediaUpload) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	ref := "/media/" + string(upload.Kind) + "/" + string(upload.Category) + "/" + upload.Filename
	f.refs = append(f.refs, ref)
	return ref, nil
}
