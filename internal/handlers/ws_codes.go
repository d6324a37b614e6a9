// internal/handlers/ws_codes.go
package handlers

// Custom WebSocket close codes, more specific than the standard set.
const (
	BadSubprotocolError  = 3000 // client connected with an unsupported subprotocol
	InvalidAuthError     = 3001 // session token invalid or missing
	InvalidLobbyIDError  = 3003 // target lobby does not exist
	InvalidBattleIDError = 3004 // target battle does not exist
)
