package common

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys double as the English format strings.
const (
	MsgItemNotFound            = "Stock item %s not found"
	MsgShelterNotFound         = "Shelter %s not found"
	MsgShelterStockNotFound    = "Shelter %s holds no stock of %s"
	MsgRequestNotFound         = "Request %s not found"
	MsgQuantityNotPositive     = "Quantity must be greater than zero, got %d"
	MsgQuantityNegative        = "Quantity cannot be negative, got %d"
	MsgSameSideTransfer        = "Source and destination must differ"
	MsgItemInactive            = "Stock item %s is disabled"
	MsgInvalidCategory         = "Unknown category %q"
	MsgInvalidThresholds       = "Critical level %d must be below minimum stock level %d"
	MsgItemNameRequired        = "Item name is required"
	MsgShelterNameRequired     = "Shelter name is required"
	MsgShelterCapacity         = "Shelter capacity must be greater than zero"
	MsgRequestEmpty            = "A request needs at least one item"
	MsgRequestDuplicateItem    = "Item %s appears more than once in the request"
	MsgApprovalUnknownItem     = "Item %s is not part of request %s"
	MsgApprovalAboveRequested  = "Approved quantity %d for %s exceeds requested %d"
	MsgApprovalNothingGranted  = "Every line was approved at zero; reject the request instead"
	MsgInsufficientStock       = "Insufficient stock of %s: requested %d, only %d available"
	MsgRequestAlreadyProcessed = "Request %s was already %s"
	MsgDeliveryTransition      = "Delivery status cannot move from %s to %s"
	MsgDeliveryNotApproved     = "Request %s is %s and has no delivery to track"
	MsgConcurrentUpdate        = "Stock item %s is being updated concurrently, please retry"
	MsgForbiddenRole           = "Role %s may not %s"
	MsgForbiddenShelter        = "You are not assigned to shelter %s"
	MsgRequestShelterRequired  = "A shelter is required for the request"
	MsgInvalidDeliveryStatus   = "Unknown delivery status %q"
	MsgInternal                = "Something went wrong, please try again"
	MsgRequestStockWarning     = "Requested %d of %s but only %d in provincial stock"
)

var spanish = map[string]string{
	MsgItemNotFound:            "No se encontró el artículo %s",
	MsgShelterNotFound:         "No se encontró el albergue %s",
	MsgShelterStockNotFound:    "El albergue %s no tiene existencias de %s",
	MsgRequestNotFound:         "No se encontró la solicitud %s",
	MsgQuantityNotPositive:     "La cantidad debe ser mayor que cero, se recibió %d",
	MsgQuantityNegative:        "La cantidad no puede ser negativa, se recibió %d",
	MsgSameSideTransfer:        "El origen y el destino deben ser distintos",
	MsgItemInactive:            "El artículo %s está deshabilitado",
	MsgInvalidCategory:         "Categoría desconocida %q",
	MsgInvalidThresholds:       "El nivel crítico %d debe ser menor que el mínimo %d",
	MsgItemNameRequired:        "El nombre del artículo es obligatorio",
	MsgShelterNameRequired:     "El nombre del albergue es obligatorio",
	MsgShelterCapacity:         "La capacidad del albergue debe ser mayor que cero",
	MsgRequestEmpty:            "La solicitud necesita al menos un artículo",
	MsgRequestDuplicateItem:    "El artículo %s aparece más de una vez en la solicitud",
	MsgApprovalUnknownItem:     "El artículo %s no forma parte de la solicitud %s",
	MsgApprovalAboveRequested:  "La cantidad aprobada %d de %s supera lo solicitado (%d)",
	MsgApprovalNothingGranted:  "Todas las líneas se aprobaron en cero; rechace la solicitud",
	MsgInsufficientStock:       "Existencias insuficientes de %s: se pidieron %d, solo hay %d disponibles",
	MsgRequestAlreadyProcessed: "La solicitud %s ya fue marcada como %s",
	MsgDeliveryTransition:      "El estado de entrega no puede pasar de %s a %s",
	MsgDeliveryNotApproved:     "La solicitud %s está %s y no tiene entrega",
	MsgConcurrentUpdate:        "El artículo %s se está actualizando en paralelo, intente de nuevo",
	MsgForbiddenRole:           "El rol %s no puede %s",
	MsgForbiddenShelter:        "No está asignado al albergue %s",
	MsgRequestShelterRequired:  "La solicitud requiere un albergue",
	MsgInvalidDeliveryStatus:   "Estado de entrega desconocido %q",
	MsgInternal:                "Algo salió mal, intente de nuevo",
	MsgRequestStockWarning:     "Se pidieron %d de %s pero solo hay %d en el stock provincial",
}

var supportedLanguages = []language.Tag{language.English, language.Spanish}

var languageMatcher = language.NewMatcher(supportedLanguages)

func init() {
	for key, text := range spanish {
		_ = message.SetString(language.Spanish, key, text)
		_ = message.SetString(language.English, key, key)
	}
}

// MatchLanguage picks the best supported language for an Accept-Language header.
func MatchLanguage(acceptLanguage string) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(acceptLanguage)
	if err != nil || len(tags) == 0 {
		return language.English
	}
	_, idx, _ := languageMatcher.Match(tags...)
	return supportedLanguages[idx]
}

// Translate renders a message key in the given language.
func Translate(tag language.Tag, key string, args ...interface{}) string {
	return message.NewPrinter(tag).Sprintf(key, args...)
}
