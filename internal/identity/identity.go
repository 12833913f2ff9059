package identity

import (
	"context"
	"fmt"
	"log"

	"github.com/golang-jwt/jwt"

	"couplesync/internal/store"
)

const (
	defaultMyName      = "Aku"
	defaultPartnerName = "Pasangan"
)

// CoupleInfo identifies the caller and their pairing. A caller without a
// pairing has an empty CoupleId; dependent operations treat that as a
// quiescent state and no-op rather than error.
type CoupleInfo struct {
	UserId      string
	CoupleId    string
	PartnerId   string
	MyName      string
	PartnerName string
}

// Paired reports whether the caller belongs to a couple.
func (c CoupleInfo) Paired() bool {
	return c.CoupleId != ""
}

// Resolver resolves an access token into the caller's couple context. It is
// read-only; pairing membership itself is managed by the auth collaborator.
type Resolver struct {
	store      store.Store
	log        *log.Logger
	signingKey []byte
}

func NewResolver(logger *log.Logger, st store.Store, signingKey []byte) *Resolver {
	return &Resolver{
		store:      st,
		log:        logger,
		signingKey: signingKey,
	}
}

// Resolve verifies accessToken and loads the caller's profile and partner.
// A missing profile or pairing is not an error.
func (r *Resolver) Resolve(ctx context.Context, accessToken string) (CoupleInfo, error) {
	userId, err := r.UserIdFromToken(accessToken)
	if err != nil {
		return CoupleInfo{}, fmt.Errorf("verify token: %w", err)
	}

	return r.ResolveUser(ctx, userId)
}

// ResolveUser loads the couple context for an already-authenticated user id.
func (r *Resolver) ResolveUser(ctx context.Context, userId string) (CoupleInfo, error) {
	info := CoupleInfo{
		UserId:      userId,
		MyName:      defaultMyName,
		PartnerName: defaultPartnerName,
	}

	// a store-less resolver only verifies tokens (relay deployments)
	if r.store == nil {
		return info, nil
	}

	row, err := store.QueryOne(ctx, r.store, store.TableProfiles, store.Predicate{"user_id": userId})
	if err == store.ErrNotFound {
		return info, nil
	}
	if err != nil {
		return CoupleInfo{}, fmt.Errorf("load profile: %w", err)
	}

	profile := store.ProfileFromRow(row)
	if profile.DisplayName != "" {
		info.MyName = profile.DisplayName
	}
	if profile.CoupleId == "" {
		return info, nil
	}
	info.CoupleId = profile.CoupleId

	// partner is the sibling profile sharing the couple id
	rows, err := r.store.Query(ctx, store.TableProfiles, store.Predicate{"couple_id": profile.CoupleId}, nil)
	if err != nil {
		return CoupleInfo{}, fmt.Errorf("load partner profile: %w", err)
	}

	for _, row := range rows {
		partner := store.ProfileFromRow(row)
		if partner.UserId == userId {
			continue
		}
		info.PartnerId = partner.UserId
		if partner.DisplayName != "" {
			info.PartnerName = partner.DisplayName
		}
		break
	}

	return info, nil
}

// UserIdFromToken verifies the HMAC-signed access token and extracts the
// subject claim.
func (r *Resolver) UserIdFromToken(accessToken string) (string, error) {
	token, err := jwt.Parse(accessToken, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return r.signingKey, nil
	})
	if err != nil {
		return "", err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return "", fmt.Errorf("missing sub claim")
	}

	return sub, nil
}
