package favorites

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"dealhunter/models"
	"dealhunter/storage"
)

const bucketPrefix = "favorites/"

const (
	NoteBestPrice   = "Best Price"
	NoteHigherPrice = "Higher Price"
)

var (
	ErrAlreadyFavorite = errors.New("product already in favorites")
	ErrNotFavorite     = errors.New("product not found in favorites")
)

// Product is the listing snapshot kept with a favorite.
type Product struct {
	ItemID      string `json:"itemId,omitempty"`
	Title       string `json:"title"`
	Price       string `json:"price"`
	Source      string `json:"source"`
	GalleryURL  string `json:"galleryURL,omitempty"`
	ViewItemURL string `json:"viewItemURL,omitempty"`
}

type Favorite struct {
	ID             string    `json:"id"`
	UserID         string    `json:"userId"`
	ProductID      string    `json:"productId"`
	AddedAt        time.Time `json:"addedAt"`
	Product        Product   `json:"product"`
	ComparisonNote string    `json:"comparisonNote,omitempty"`
}

type Status struct {
	ProductID   string `json:"productId"`
	IsFavorited bool   `json:"isFavorited"`
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// ProductID derives the stable favorite key of a listing.
func ProductID(p Product) string {
	source := p.Source
	if source == "" {
		source = "unknown"
	}
	if p.ItemID != "" {
		return source + "_" + p.ItemID
	}
	identifier := p.Title + "_" + p.Price + "_" + source
	return strings.ToLower(nonAlnum.ReplaceAllString(identifier, "_"))
}

// Service keeps each user's favorite listings in their own KV bucket keyed by
// product id.
type Service struct {
	kv     storage.KV
	logger *zap.Logger
	now    func() time.Time
	mu     sync.Mutex
}

func NewService(kv storage.KV, logger *zap.Logger) *Service {
	return &Service{kv: kv, logger: logger, now: time.Now}
}

func userBucket(userID string) string {
	return bucketPrefix + userID
}

// List returns the user's favorites in the order they were added. Favorites
// sharing a title are annotated with a price comparison note.
func (s *Service) List(ctx context.Context, userID string) ([]Favorite, error) {
	var out []Favorite
	err := s.kv.ForEach(userBucket(userID), func(k string, v []byte) error {
		var f Favorite
		if err := storage.DecodeJSON(v, &f); err != nil {
			s.logger.Warn("skipping unreadable favorite", zap.String("key", k), zap.Error(err))
			return nil
		}
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].AddedAt.Before(out[j].AddedAt)
	})
	annotate(out)
	return out, nil
}

func annotate(favs []Favorite) {
	groups := make(map[string][]int)
	for i, f := range favs {
		title := strings.ToLower(f.Product.Title)
		groups[title] = append(groups[title], i)
	}
	for _, idx := range groups {
		if len(idx) < 2 {
			continue
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return models.ParsePriceNumeric(favs[idx[a]].Product.Price) < models.ParsePriceNumeric(favs[idx[b]].Product.Price)
		})
		for rank, i := range idx {
			if rank == 0 {
				favs[i].ComparisonNote = NoteBestPrice
			} else {
				favs[i].ComparisonNote = NoteHigherPrice
			}
		}
	}
}

func (s *Service) Add(ctx context.Context, userID string, p Product) (*Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.add(userID, p)
}

func (s *Service) add(userID string, p Product) (*Favorite, error) {
	productID := ProductID(p)
	if s.exists(userID, productID) {
		return nil, ErrAlreadyFavorite
	}

	fav := Favorite{
		ID:        uuid.NewString(),
		UserID:    userID,
		ProductID: productID,
		AddedAt:   s.now().UTC(),
		Product:   p,
	}
	if err := storage.PutJSON(s.kv, userBucket(userID), productID, fav); err != nil {
		return nil, fmt.Errorf("save favorite: %w", err)
	}
	s.logger.Debug("favorite added", zap.String("user_id", userID), zap.String("product_id", productID))
	return &fav, nil
}

func (s *Service) Remove(ctx context.Context, userID, productID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remove(userID, productID)
}

func (s *Service) remove(userID, productID string) error {
	if !s.exists(userID, productID) {
		return ErrNotFavorite
	}
	if err := s.kv.Delete(userBucket(userID), productID); err != nil {
		return fmt.Errorf("delete favorite: %w", err)
	}
	return nil
}

// Toggle removes the listing if it is a favorite and adds it otherwise. It
// reports whether the listing is a favorite afterwards.
func (s *Service) Toggle(ctx context.Context, userID string, p Product) (bool, *Favorite, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	productID := ProductID(p)
	if s.exists(userID, productID) {
		return false, nil, s.remove(userID, productID)
	}
	fav, err := s.add(userID, p)
	if err != nil {
		return false, nil, err
	}
	return true, fav, nil
}

// CheckStatus reports, per listing, whether the user has it as a favorite.
func (s *Service) CheckStatus(ctx context.Context, userID string, products []Product) []Status {
	out := make([]Status, len(products))
	for i, p := range products {
		out[i] = Status{
			ProductID:   p.ItemID,
			IsFavorited: s.exists(userID, ProductID(p)),
		}
	}
	return out
}

func (s *Service) exists(userID, productID string) bool {
	_, err := s.kv.Get(userBucket(userID), productID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		s.logger.Warn("favorite lookup failed", zap.String("user_id", userID), zap.Error(err))
	}
	return err == nil
}
