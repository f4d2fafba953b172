package routing

import (
	"fmt"
	"net/http"
)

// TransportError is returned when no HTTP response could be obtained
// (DNS failure, refused connection, timeout).
type TransportError struct {
	Mode    TransportMode
	Message string
	Err     error
}

func (e *TransportError) Error() string { return e.Message }

func (e *TransportError) Unwrap() error { return e.Err }

// ProtocolError is returned when the routing API answered with a non-success
// status, or with a success status and a body that fails validation.
type ProtocolError struct {
	Mode       TransportMode
	StatusCode int
	Message    string
	Err        error
}

func (e *ProtocolError) Error() string { return e.Message }

func (e *ProtocolError) Unwrap() error { return e.Err }

// Messages resolves user-facing error messages. It is plain data so that a
// locale can be chosen at startup and passed in.
type Messages struct {
	// Status maps well-known HTTP status codes to a message.
	Status map[int]string
	// HTTPError is a format string receiving the status code, used for codes
	// missing from Status.
	HTTPError string
	// Network is used for every TransportError.
	Network string
	// InvalidResponse is used when a 2xx body fails validation.
	InvalidResponse string
}

// ForStatus returns the message for an HTTP status code.
func (m Messages) ForStatus(code int) string {
	if msg, ok := m.Status[code]; ok {
		return msg
	}
	return fmt.Sprintf(m.HTTPError, code)
}

// EnglishMessages is the default message table.
var EnglishMessages = Messages{
	Status: map[int]string{
		http.StatusNoContent:           "No route found between these points",
		http.StatusBadRequest:          "Invalid routing request parameters",
		http.StatusUnauthorized:        "Invalid or missing routing API key",
		http.StatusNotFound:            "Routing service endpoint not found",
		http.StatusMethodNotAllowed:    "Method not allowed by the routing service",
		http.StatusExpectationFailed:   "Points are outside the area covered by this mode",
		http.StatusInternalServerError: "Routing service internal error",
	},
	HTTPError:       "HTTP error, status=%d",
	Network:         "Network error: the routing service could not be reached",
	InvalidResponse: "Invalid response from the routing service",
}

// FrenchMessages mirrors EnglishMessages.
var FrenchMessages = Messages{
	Status: map[int]string{
		http.StatusNoContent:           "Aucun itinéraire trouvé entre ces points",
		http.StatusBadRequest:          "Paramètres de requête invalides",
		http.StatusUnauthorized:        "Clé d'API invalide ou manquante",
		http.StatusNotFound:            "Service de calcul d'itinéraire introuvable",
		http.StatusMethodNotAllowed:    "Méthode non autorisée par le service",
		http.StatusExpectationFailed:   "Points hors de la zone couverte par ce mode",
		http.StatusInternalServerError: "Erreur interne du service de calcul d'itinéraire",
	},
	HTTPError:       "Erreur HTTP, statut=%d",
	Network:         "Erreur réseau : le service de calcul d'itinéraire est injoignable",
	InvalidResponse: "Réponse invalide du service de calcul d'itinéraire",
}

// MessagesFor returns the table for locale, defaulting to English.
func MessagesFor(locale string) Messages {
	if locale == "fr" {
		return FrenchMessages
	}
	return EnglishMessages
}
