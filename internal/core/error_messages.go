package core

import (
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so order matters: context errors come first
// because most wrapped errors end with one, and the catch-all completion
// pattern comes last.
var errorPatterns = []errorPattern{
	// =========================================================================
	// Request Errors (REQ001, REQ003-REQ005)
	// =========================================================================
	{
		pattern: "context deadline exceeded",
		msg: UserMessage{
			Message: "La génération a pris trop de temps",
			Action:  "Réessayez avec moins de lignes ou plus tard",
			Code:    "REQ003",
		},
	},
	{
		pattern: "context canceled",
		msg: UserMessage{
			Message: "La requête a été annulée",
			Action:  "Relancez la génération",
			Code:    "REQ004",
		},
	},

	{
		pattern: "invalid fiche id",
		msg: UserMessage{
			Message: "Fiche introuvable",
			Action:  "Sélectionnez une fiche dans la liste",
			Code:    "REQ001",
		},
	},

	{
		pattern: "too many requests from this client",
		msg: UserMessage{
			Message: "Trop de requêtes",
			Action:  "Patientez une minute avant de réessayer",
			Code:    "REQ005",
		},
	},

	// =========================================================================
	// Completion API Errors (LLM001-LLM003)
	// =========================================================================
	{
		pattern: "status code: 401",
		msg: UserMessage{
			Message: "La clé API OpenAI est invalide",
			Action:  "Vérifiez OPENAI_API_KEY",
			Code:    "LLM001",
		},
	},
	{
		pattern: "status code: 429",
		msg: UserMessage{
			Message: "Le quota de l'API OpenAI est atteint",
			Action:  "Patientez quelques instants puis réessayez",
			Code:    "LLM002",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Le quota de l'API OpenAI est atteint",
			Action:  "Patientez quelques instants puis réessayez",
			Code:    "LLM002",
		},
	},
	{
		pattern: "completion returned no choices",
		msg: UserMessage{
			Message: "Le modèle n'a renvoyé aucun texte",
			Action:  "Relancez la génération",
			Code:    "LLM003",
		},
	},
	{
		pattern: "fiche content is empty",
		msg: UserMessage{
			Message: "La fiche de poste est vide",
			Action:  "Régénérez la fiche avant de rédiger le message",
			Code:    "LLM003",
		},
	},

	// =========================================================================
	// Spreadsheet Errors (SRC001-SRC003)
	// =========================================================================
	{
		pattern: "google sheets",
		msg: UserMessage{
			Message: "Impossible d'accéder à la feuille Google",
			Action:  "Vérifiez SPREADSHEET_ID et les identifiants du compte de service",
			Code:    "SRC001",
		},
	},
	{
		pattern: "read range",
		msg: UserMessage{
			Message: "Impossible de lire la plage de la feuille",
			Action:  "Vérifiez SHEET_RANGE et le partage de la feuille",
			Code:    "SRC001",
		},
	},
	{
		pattern: "unknown sheet source",
		msg: UserMessage{
			Message: "Source de données inconnue",
			Action:  "SHEET_SOURCE doit valoir google, csv ou xlsx",
			Code:    "SRC002",
		},
	},
	{
		pattern: "open csv",
		msg: UserMessage{
			Message: "Le fichier CSV est introuvable",
			Action:  "Vérifiez SHEET_PATH",
			Code:    "SRC003",
		},
	},
	{
		pattern: "read csv",
		msg: UserMessage{
			Message: "Le fichier CSV est illisible",
			Action:  "Vérifiez SHEET_PATH et l'encodage UTF-8",
			Code:    "SRC003",
		},
	},
	{
		pattern: "workbook",
		msg: UserMessage{
			Message: "Le classeur Excel est illisible",
			Action:  "Vérifiez SHEET_PATH et SHEET_NAME",
			Code:    "SRC003",
		},
	},
	{
		pattern: "read sheet",
		msg: UserMessage{
			Message: "L'onglet du classeur est introuvable",
			Action:  "Vérifiez SHEET_NAME",
			Code:    "SRC003",
		},
	},

	// =========================================================================
	// Storage Errors (DB001-DB002)
	// =========================================================================
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Base de données injoignable",
			Action:  "Réessayez dans quelques instants",
			Code:    "DB001",
		},
	},
	{
		pattern: "already exists",
		msg: UserMessage{
			Message: "Cet enregistrement existe déjà",
			Action:  "Relancez la génération",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates",
		msg: UserMessage{
			Message: "L'enregistrement a été refusé par la base",
			Action:  "Relancez la génération",
			Code:    "DB002",
		},
	},

	// =========================================================================
	// Request Errors (REQ001-REQ002)
	// =========================================================================
	{
		pattern: "already in progress",
		msg: UserMessage{
			Message: "Une génération est déjà en cours",
			Action:  "Patientez jusqu'à la fin puis réessayez",
			Code:    "REQ002",
		},
	},
	{
		pattern: "not found",
		msg: UserMessage{
			Message: "Fiche introuvable",
			Action:  "Sélectionnez une fiche dans la liste",
			Code:    "REQ001",
		},
	},

	// =========================================================================
	// Completion API Errors (LLM004)
	// =========================================================================
	{
		pattern: "chat completion",
		msg: UserMessage{
			Message: "L'appel à l'API OpenAI a échoué",
			Action:  "Réessayez ou contactez le support",
			Code:    "LLM004",
		},
	},
}

// defaultMessage is returned when no pattern matches (ERR000).
// Support staff should check application logs for the original error.
var defaultMessage = UserMessage{
	Message: "Une erreur inattendue est survenue",
	Action:  "Réessayez ou contactez le support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// It returns the first pattern match, or the ERR000 fallback.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())

	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matches a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
