package account

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/crop-up-dev/hub/pkg/storage"
)

const profileKey = "btc-trading-profile"

// ProfileSettings are the user's trading preferences.
type ProfileSettings struct {
	DefaultOrderType string `json:"defaultOrderType"` // "market" or "limit"
	Notifications    bool   `json:"notifications"`
	Currency         string `json:"currency"`
}

// Profile is the display-facing user record.
type Profile struct {
	DisplayName string          `json:"displayName"`
	Avatar      string          `json:"avatar"` // URL or data URI
	JoinedAt    int64           `json:"joinedAt"`
	Settings    ProfileSettings `json:"settings"`
}

// DefaultProfile is the profile a fresh install starts with.
func DefaultProfile() Profile {
	return Profile{
		DisplayName: "Trader",
		JoinedAt:    time.Now().UnixMilli(),
		Settings: ProfileSettings{
			DefaultOrderType: "market",
			Notifications:    true,
			Currency:         "USD",
		},
	}
}

// ProfileRepository loads and saves the profile record.
type ProfileRepository struct {
	store storage.Store
}

func NewProfileRepository(store storage.Store) *ProfileRepository {
	return &ProfileRepository{store: store}
}

func (r *ProfileRepository) Load(ctx context.Context) (Profile, error) {
	data, err := r.store.Load(ctx, profileKey)
	if errors.Is(err, storage.ErrNotFound) {
		return DefaultProfile(), nil
	}
	if err != nil {
		return Profile{}, fmt.Errorf("load profile: %w", err)
	}

	var p Profile
	if err := json.Unmarshal(data, &p); err != nil {
		return Profile{}, fmt.Errorf("decode profile: %w", err)
	}
	return p, nil
}

func (r *ProfileRepository) Save(ctx context.Context, p Profile) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	if err := r.store.Save(ctx, profileKey, data); err != nil {
		return fmt.Errorf("save profile: %w", err)
	}
	return nil
}
