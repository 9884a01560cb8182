package models

import (
	"fmt"
	"time"

	"github.com/cockroachdb/errors"
)

// AccountKey identifies one operator of one carrier account on the courier platform.
// It is used as is as a map key: both fields are compared exactly.
type AccountKey struct {
	OperatorId       string
	CarrierAccountId string
}

func NewAccountKey(operatorId, carrierAccountId string) AccountKey {
	return AccountKey{OperatorId: operatorId, CarrierAccountId: carrierAccountId}
}

func (k AccountKey) String() string {
	return k.CarrierAccountId + ":" + k.OperatorId
}

// Matricule is the operator identifier as the courier platform expects it.
func (k AccountKey) Matricule() string {
	return k.CarrierAccountId + "_" + k.OperatorId
}

func (k AccountKey) Validate() error {
	if k.OperatorId == "" {
		return errors.Wrap(BadParameterError, "operator id is required")
	}
	if k.CarrierAccountId == "" {
		return errors.Wrap(BadParameterError, "carrier account id is required")
	}
	return nil
}

type SessionToken struct {
	Value     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// IsFreshAt reports whether the token may still be served at the given instant.
func (t SessionToken) IsFreshAt(now time.Time) bool {
	return now.Before(t.ExpiresAt)
}

// Redacted returns a version of the token value that can be written to logs.
func (t SessionToken) Redacted() string {
	const visible = 6
	if len(t.Value) <= visible {
		return "***"
	}
	return t.Value[:visible] + "***"
}

type SessionTokenResult struct {
	Token         SessionToken
	FreshlyMinted bool
}

func (r SessionTokenResult) Source() string {
	if r.FreshlyMinted {
		return "fresh_login"
	}
	return "cache"
}

type CourierCredentials struct {
	Key           AccountKey
	Password      string
	ValidityHours int
}

// Login is the value of the "login" field of the courier authentication payload.
func (c CourierCredentials) Login() string {
	return c.Key.Matricule()
}

func (c CourierCredentials) Validate() error {
	if err := c.Key.Validate(); err != nil {
		return err
	}
	if c.Password == "" {
		return errors.Wrap(BadParameterError, "password is required")
	}
	return nil
}

func (c CourierCredentials) String() string {
	return fmt.Sprintf("CourierCredentials{%s}", c.Key)
}
