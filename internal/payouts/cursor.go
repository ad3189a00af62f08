package payouts

import (
	"encoding/base64"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/cokeastorga/paylane/pkg/db/models"
	"github.com/cokeastorga/paylane/pkg/enums"
)

const (
	// DefaultPageSize applies when the caller does not pass a limit.
	DefaultPageSize = 25
	// MaxPageSize caps how many payout rows one page may return.
	MaxPageSize = 100
)

// ListParams filters and pages a store's payout history.
type ListParams struct {
	Limit  int
	Cursor string
	Status *enums.PayoutStatus
}

func pageSize(limit int) int {
	if limit <= 0 {
		return DefaultPageSize
	}
	if limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// listCursor pins the keyset position at the created_at/id pair of the last
// payout already served.
type listCursor struct {
	createdAt time.Time
	id        uuid.UUID
}

func encodeListCursor(last models.Payout) string {
	raw := fmt.Sprintf("%d:%s", last.CreatedAt.UTC().UnixNano(), last.ID)
	return base64.RawURLEncoding.EncodeToString([]byte(raw))
}

func decodeListCursor(value string) (*listCursor, error) {
	if strings.TrimSpace(value) == "" {
		return nil, nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("decode cursor: %w", err)
	}
	nanos, idPart, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return nil, fmt.Errorf("malformed cursor")
	}
	ts, err := strconv.ParseInt(nanos, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor timestamp: %w", err)
	}
	id, err := uuid.Parse(idPart)
	if err != nil {
		return nil, fmt.Errorf("malformed cursor id: %w", err)
	}
	return &listCursor{createdAt: time.Unix(0, ts).UTC(), id: id}, nil
}
