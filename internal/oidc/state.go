package oidc

import (
	"strconv"
	"time"

	"github.com/dropDatabas3/potatoreg/internal/cache"
	"github.com/dropDatabas3/potatoreg/internal/security/token"
)

const (
	stateTTL = 5 * time.Minute

	// stateGrace mantiene la entrada viva en el backend después de su expiry
	// lógico, para poder responder Expired (y no Invalid) a un callback lento.
	// Pasada la gracia degrada a Invalid, que sigue siendo un rechazo.
	stateGrace = time.Hour
)

// ConsumeResult es el veredicto de presentar un state en el callback.
type ConsumeResult int

const (
	StateOK ConsumeResult = iota
	StateInvalid
	StateExpired
)

// StateStore emite y consume tokens anti-CSRF del flujo de login SSO.
//
// Consume borra SIEMPRE, sea cual sea el veredicto: presentar un state dos
// veces nunca puede dar OK dos veces. El borrado usa Take (remove-and-inspect
// atómico), no get+delete, para que dos callbacks concurrentes con el mismo
// state no vean ambos "válido".
type StateStore struct {
	cache cache.Cache
}

func NewStateStore(c cache.Cache) *StateStore {
	return &StateStore{cache: c}
}

// Issue genera un state urlsafe de 32 bytes de entropía y lo registra.
func (s *StateStore) Issue() (string, error) {
	st, err := token.GenerateOpaque(32)
	if err != nil {
		return "", err
	}
	exp := time.Now().Add(stateTTL).Unix()
	s.cache.Set("oidc:state:"+st, []byte(strconv.FormatInt(exp, 10)), stateTTL+stateGrace)
	return st, nil
}

// Consume valida y elimina el state en un solo paso.
func (s *StateStore) Consume(state string) ConsumeResult {
	if state == "" {
		return StateInvalid
	}
	raw, ok := s.cache.Take("oidc:state:" + state)
	if !ok {
		return StateInvalid
	}
	exp, err := strconv.ParseInt(string(raw), 10, 64)
	if err != nil {
		return StateInvalid
	}
	if time.Now().Unix() >= exp {
		return StateExpired
	}
	return StateOK
}
