package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"ms-volunteer/internal/models"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
)

// Identity is the caller as established by a verified bearer token.
type Identity struct {
	UserID string
	Roles  []models.Role
}

func (i *Identity) HasRole(role models.Role) bool {
	for _, r := range i.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (i *Identity) IsOperator() bool {
	for _, r := range i.Roles {
		if r.IsOperator() {
			return true
		}
	}
	return false
}

type TokenVerifier interface {
	Verify(ctx context.Context, rawToken string) (*Identity, error)
}

// ExtractTokenFromRequest extracts a JWT token from an HTTP request's Authorization header
func ExtractTokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", errors.New("authorization header is missing")
	}

	// Bearer token format: "Bearer {token}"
	parts := strings.Fields(authHeader)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("authorization header format must be 'Bearer {token}'")
	}
	return parts[1], nil
}

// OIDCVerifier validates tokens issued by an OpenID Connect provider such as Keycloak.
type OIDCVerifier struct {
	verifier   *oidc.IDTokenVerifier
	rolesClaim string
}

func NewOIDCVerifier(ctx context.Context, issuer, rolesClaim string) (*OIDCVerifier, error) {
	provider, err := oidc.NewProvider(ctx, issuer)
	if err != nil {
		return nil, fmt.Errorf("create OIDC provider for %s: %w", issuer, err)
	}
	// Access tokens carry no fixed audience for this service.
	verifier := provider.Verifier(&oidc.Config{SkipClientIDCheck: true})
	return &OIDCVerifier{verifier: verifier, rolesClaim: rolesClaim}, nil
}

func (v *OIDCVerifier) Verify(ctx context.Context, rawToken string) (*Identity, error) {
	idToken, err := v.verifier.Verify(ctx, rawToken)
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	var claims map[string]interface{}
	if err := idToken.Claims(&claims); err != nil {
		return nil, fmt.Errorf("failed to parse claims: %w", err)
	}
	return identityFromClaims(claims, v.rolesClaim)
}

// HMACVerifier validates HS256 tokens signed with a shared secret. Meant for local runs.
type HMACVerifier struct {
	secret     []byte
	rolesClaim string
}

func NewHMACVerifier(secret, rolesClaim string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret), rolesClaim: rolesClaim}
}

func (v *HMACVerifier) Verify(_ context.Context, rawToken string) (*Identity, error) {
	token, err := jwt.Parse(rawToken, func(*jwt.Token) (interface{}, error) {
		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}
	return identityFromClaims(claims, v.rolesClaim)
}

// SignHMAC issues an HS256 token in the shape HMACVerifier accepts, with roles under
// the same claim path.
func SignHMAC(secret, userID string, roles []models.Role, rolesClaim string, ttl time.Duration) (string, error) {
	roleValues := make([]interface{}, len(roles))
	for i, r := range roles {
		roleValues[i] = string(r)
	}

	claims := jwt.MapClaims{
		"sub": userID,
		"iat": time.Now().Unix(),
		"exp": time.Now().Add(ttl).Unix(),
	}
	setPath(claims, rolesClaim, roleValues)

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func identityFromClaims(claims map[string]interface{}, rolesClaim string) (*Identity, error) {
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return nil, errors.New("subject claim not found in token")
	}

	identity := &Identity{UserID: sub}
	raw, _ := lookupPath(claims, rolesClaim).([]interface{})
	for _, r := range raw {
		switch role := models.Role(fmt.Sprint(r)); role {
		case models.RoleAdmin, models.RoleModerator, models.RoleUser:
			identity.Roles = append(identity.Roles, role)
		}
	}
	return identity, nil
}

// lookupPath follows a dotted claim path such as "realm_access.roles".
func lookupPath(claims map[string]interface{}, path string) interface{} {
	if path == "" {
		return nil
	}
	var current interface{} = claims
	for _, key := range strings.Split(path, ".") {
		m, ok := current.(map[string]interface{})
		if !ok {
			return nil
		}
		current = m[key]
	}
	return current
}

func setPath(claims map[string]interface{}, path string, value interface{}) {
	if path == "" {
		return
	}
	keys := strings.Split(path, ".")
	current := claims
	for _, key := range keys[:len(keys)-1] {
		next, ok := current[key].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			current[key] = next
		}
		current = next
	}
	current[keys[len(keys)-1]] = value
}
