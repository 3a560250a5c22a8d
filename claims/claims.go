// Package claims turns a verified BYU JWT payload, keyed by WSO2 and BYU claim
// URIs, into typed structs.
package claims

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/byu-oit/byu-jwt-go/core"
)

// Claim URI prefixes.
const (
	GatewayPrefix       = "http://wso2.org/claims/"
	ClientPrefix        = "http://byu.edu/claims/client_"
	ResourceOwnerPrefix = "http://byu.edu/claims/resourceowner_"
)

// Gateway claim keys.
const (
	KeyAPIContext      = GatewayPrefix + "apicontext"
	KeyApplicationID   = GatewayPrefix + "applicationid"
	KeyApplicationName = GatewayPrefix + "applicationname"
	KeyApplicationTier = GatewayPrefix + "applicationtier"
	KeyClientID        = GatewayPrefix + "client_id"
	KeyEndUser         = GatewayPrefix + "enduser"
	KeyEndUserTenantID = GatewayPrefix + "enduserTenantId"
	KeyKeyType         = GatewayPrefix + "keytype"
	KeySubscriber      = GatewayPrefix + "subscriber"
	KeyTier            = GatewayPrefix + "tier"
	KeyUserType        = GatewayPrefix + "usertype"
	KeyVersion         = GatewayPrefix + "version"
)

// Client claim keys.
const (
	KeyClientByuID              = ClientPrefix + "byu_id"
	KeyClientClaimSource        = ClientPrefix + "claim_source"
	KeyClientNetID              = ClientPrefix + "net_id"
	KeyClientPersonID           = ClientPrefix + "person_id"
	KeyClientPreferredFirstName = ClientPrefix + "preferred_first_name"
	KeyClientNamePrefix         = ClientPrefix + "name_prefix"
	KeyClientRestOfName         = ClientPrefix + "rest_of_name"
	KeyClientSortName           = ClientPrefix + "sort_name"
	KeyClientSubscriberNetID    = ClientPrefix + "subscriber_net_id"
	KeyClientNameSuffix         = ClientPrefix + "name_suffix"
	KeyClientSurname            = ClientPrefix + "surname"
	KeyClientSurnamePosition    = ClientPrefix + "surname_position"
)

// Resource-owner claim keys.
const (
	KeyResourceOwnerByuID              = ResourceOwnerPrefix + "byu_id"
	KeyResourceOwnerNetID              = ResourceOwnerPrefix + "net_id"
	KeyResourceOwnerPersonID           = ResourceOwnerPrefix + "person_id"
	KeyResourceOwnerPreferredFirstName = ResourceOwnerPrefix + "preferred_first_name"
	KeyResourceOwnerPrefix             = ResourceOwnerPrefix + "prefix"
	KeyResourceOwnerRestOfName         = ResourceOwnerPrefix + "rest_of_name"
	KeyResourceOwnerSortName           = ResourceOwnerPrefix + "sort_name"
	KeyResourceOwnerSuffix             = ResourceOwnerPrefix + "suffix"
	KeyResourceOwnerSurname            = ResourceOwnerPrefix + "surname"
	KeyResourceOwnerSurnamePosition    = ResourceOwnerPrefix + "surname_position"
)

// KeyType is the gateway subscription key type.
type KeyType string

const (
	KeyTypeProduction KeyType = "PRODUCTION"
	KeyTypeSandbox    KeyType = "SANDBOX"
)

// UserType says whether a person or only an application is behind the call.
type UserType string

const (
	UserTypeApplicationUser UserType = "APPLICATION_USER"
	UserTypeApplication     UserType = "APPLICATION"
)

// ClaimSource says where the client claims were taken from.
type ClaimSource string

const (
	ClaimSourceClientID         ClaimSource = "CLIENT_ID"
	ClaimSourceClientSubscriber ClaimSource = "CLIENT_SUBSCRIBER"
)

// Raw is a decoded JWT payload.
type Raw map[string]any

// Person holds the identity fields shared by clients and resource owners.
type Person struct {
	ByuID              string `json:"byuId"`
	NetID              string `json:"netId"`
	PersonID           string `json:"personId"`
	PreferredFirstName string `json:"preferredFirstName"`
	Prefix             string `json:"prefix"`
	RestOfName         string `json:"restOfName"`
	SortName           string `json:"sortName"`
	Suffix             string `json:"suffix"`
	Surname            string `json:"surname"`
	SurnamePosition    string `json:"surnamePosition"`
}

// ClientClaims describe the application (or its subscriber) making the call.
type ClientClaims struct {
	Person
	ClaimSource     ClaimSource `json:"claimSource"`
	SubscriberNetID string      `json:"subscriberNetId"`
}

// ResourceOwnerClaims describe the person on whose behalf the call is made.
type ResourceOwnerClaims struct {
	Person
}

// Application identifies the gateway application.
type Application struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Tier string `json:"tier"`
}

// GatewayClaims are the WSO2 gateway claims.
type GatewayClaims struct {
	APIContext      string      `json:"apiContext"`
	Application     Application `json:"application"`
	ClientID        string      `json:"clientId"`
	EndUser         string      `json:"endUser"`
	EndUserTenantID string      `json:"endUserTenantId"`
	KeyType         KeyType     `json:"keyType"`
	Subscriber      string      `json:"subscriber"`
	Tier            string      `json:"tier"`
	UserType        UserType    `json:"userType"`
	Version         string      `json:"version"`
}

// RegisteredClaims are the standard claims the module reads.
type RegisteredClaims struct {
	Issuer    string   `json:"iss,omitempty"`
	Subject   string   `json:"sub,omitempty"`
	Audience  []string `json:"aud,omitempty"`
	Expiry    int64    `json:"exp,omitempty"`
	IssuedAt  int64    `json:"iat,omitempty"`
	NotBefore int64    `json:"nbf,omitempty"`
}

// Identity is the normalized form of one verified token.
type Identity struct {
	Client        ClientClaims         `json:"client"`
	ResourceOwner *ResourceOwnerClaims `json:"resourceOwner,omitempty"`
	// Claims points at the resource owner when present, else the client.
	Claims     *Person          `json:"claims"`
	Gateway    GatewayClaims    `json:"wso2"`
	Registered RegisteredClaims `json:"registered"`
	Raw        Raw              `json:"raw"`
}

// HasResourceOwner reports whether a person is behind the call.
func (id *Identity) HasResourceOwner() bool {
	return id.ResourceOwner != nil
}

var requiredKeys = []string{KeyAPIContext, KeyClientByuID}

// Normalize maps raw onto an Identity. It fails only when a required key is
// missing or a required value is not a string; optional keys that are absent
// become empty strings.
func Normalize(raw Raw) (*Identity, error) {
	for _, key := range requiredKeys {
		if _, ok := raw[key].(string); !ok {
			return nil, core.NewValidationError(
				core.ErrorCodeInvalidClaims,
				"invalid JWT claims",
				fmt.Errorf("missing required claim %q", key),
			)
		}
	}

	id := &Identity{
		Raw: raw,
		Client: ClientClaims{
			Person: Person{
				ByuID:              raw.String(KeyClientByuID),
				NetID:              raw.String(KeyClientNetID),
				PersonID:           raw.String(KeyClientPersonID),
				PreferredFirstName: raw.String(KeyClientPreferredFirstName),
				Prefix:             raw.String(KeyClientNamePrefix),
				RestOfName:         raw.String(KeyClientRestOfName),
				SortName:           raw.String(KeyClientSortName),
				Suffix:             raw.String(KeyClientNameSuffix),
				Surname:            raw.String(KeyClientSurname),
				SurnamePosition:    raw.String(KeyClientSurnamePosition),
			},
			ClaimSource:     ClaimSource(raw.String(KeyClientClaimSource)),
			SubscriberNetID: raw.String(KeyClientSubscriberNetID),
		},
		Gateway: GatewayClaims{
			APIContext: raw.String(KeyAPIContext),
			Application: Application{
				ID:   raw.String(KeyApplicationID),
				Name: raw.String(KeyApplicationName),
				Tier: raw.String(KeyApplicationTier),
			},
			ClientID:        raw.String(KeyClientID),
			EndUser:         raw.String(KeyEndUser),
			EndUserTenantID: raw.String(KeyEndUserTenantID),
			KeyType:         KeyType(raw.String(KeyKeyType)),
			Subscriber:      raw.String(KeySubscriber),
			Tier:            raw.String(KeyTier),
			UserType:        UserType(raw.String(KeyUserType)),
			Version:         raw.String(KeyVersion),
		},
		Registered: RegisteredClaims{
			Issuer:    raw.String("iss"),
			Subject:   raw.String("sub"),
			Audience:  raw.Strings("aud"),
			Expiry:    raw.Int64("exp"),
			IssuedAt:  raw.Int64("iat"),
			NotBefore: raw.Int64("nbf"),
		},
	}

	if _, ok := raw[KeyResourceOwnerByuID]; ok {
		id.ResourceOwner = &ResourceOwnerClaims{
			Person: Person{
				ByuID:              raw.String(KeyResourceOwnerByuID),
				NetID:              raw.String(KeyResourceOwnerNetID),
				PersonID:           raw.String(KeyResourceOwnerPersonID),
				PreferredFirstName: raw.String(KeyResourceOwnerPreferredFirstName),
				Prefix:             raw.String(KeyResourceOwnerPrefix),
				RestOfName:         raw.String(KeyResourceOwnerRestOfName),
				SortName:           raw.String(KeyResourceOwnerSortName),
				Suffix:             raw.String(KeyResourceOwnerSuffix),
				Surname:            raw.String(KeyResourceOwnerSurname),
				SurnamePosition:    raw.String(KeyResourceOwnerSurnamePosition),
			},
		}
		id.Claims = &id.ResourceOwner.Person
	} else {
		id.Claims = &id.Client.Person
	}

	return id, nil
}

// String returns the claim as a string. Numbers are formatted without an
// exponent; anything else that is not a string yields "".
func (r Raw) String(key string) string {
	switch v := r[key].(type) {
	case string:
		return v
	case json.Number:
		return v.String()
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(v, 10)
	case int:
		return strconv.Itoa(v)
	}
	return ""
}

// Strings returns a claim that may be a single string or a list of strings.
func (r Raw) Strings(key string) []string {
	switch v := r[key].(type) {
	case string:
		return []string{v}
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

// Int64 returns a numeric claim, or 0 when absent or not a number.
func (r Raw) Int64(key string) int64 {
	switch v := r[key].(type) {
	case float64:
		return int64(v)
	case json.Number:
		n, _ := v.Int64()
		return n
	case int64:
		return v
	case int:
		return int64(v)
	}
	return 0
}
