package common

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"
)

func TestLedgerError_IsMatchesKind(t *testing.T) {
	itemID := uuid.New()
	err := fmt.Errorf("dispense: %w", InsufficientStock(itemID, "Rice", 12, 4))

	assert.ErrorIs(t, err, ErrInsufficientStock)
	assert.NotErrorIs(t, err, ErrNotFound)

	kind, ok := KindOf(err)
	require.True(t, ok)
	assert.Equal(t, KindInsufficientStock, kind)
	assert.True(t, IsKind(err, KindInsufficientStock))

	var le *LedgerError
	require.ErrorAs(t, err, &le)
	assert.Equal(t, itemID, le.ItemID)
	assert.Equal(t, 4, le.Available)
	assert.Equal(t, 12, le.Requested)
}

func TestKindOf_PlainError(t *testing.T) {
	_, ok := KindOf(errors.New("boom"))
	assert.False(t, ok)
	assert.False(t, IsKind(nil, KindConflict))
}

func TestConflict_WrapsCause(t *testing.T) {
	cause := errors.New("version moved")
	err := Conflict(uuid.New(), cause)

	assert.ErrorIs(t, err, ErrConflict)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "version moved")
}

func TestLedgerError_Localize(t *testing.T) {
	err := InsufficientStock(uuid.New(), "Agua", 10, 3)

	assert.Equal(t, "Insufficient stock of Agua: requested 10, only 3 available", err.Error())
	assert.Equal(t, "Existencias insuficientes de Agua: se pidieron 10, solo hay 3 disponibles", err.Localize(language.Spanish))

	bare := &LedgerError{Kind: KindForbidden}
	assert.Equal(t, "FORBIDDEN", bare.Error())
}

func TestMatchLanguage(t *testing.T) {
	assert.Equal(t, language.Spanish, MatchLanguage("es-AR,es;q=0.9,en;q=0.5"))
	assert.Equal(t, language.English, MatchLanguage("en-US"))
	assert.Equal(t, language.English, MatchLanguage(""))
	assert.Equal(t, language.English, MatchLanguage("fr-FR"))
}

func TestMessagesHaveSpanishTranslations(t *testing.T) {
	keys := []string{
		MsgItemNotFound, MsgInsufficientStock, MsgRequestAlreadyProcessed, MsgConcurrentUpdate,
		MsgForbiddenRole, MsgDeliveryTransition, MsgApprovalNothingGranted, MsgInternal,
	}
	for _, key := range keys {
		assert.Contains(t, spanish, key)
	}
}

func TestHTTPStatus(t *testing.T) {
	tests := map[ErrorKind]int{
		KindNotFound:          http.StatusNotFound,
		KindInvalidInput:      http.StatusBadRequest,
		KindForbidden:         http.StatusForbidden,
		KindInsufficientStock: http.StatusConflict,
		KindAlreadyProcessed:  http.StatusConflict,
		KindConflict:          http.StatusConflict,
		ErrorKind("OTHER"):    http.StatusInternalServerError,
	}
	for kind, status := range tests {
		assert.Equal(t, status, HTTPStatus(kind), kind)
	}
}
