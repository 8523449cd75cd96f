package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tableside/community-server/internal/store"
)

// CommunityHandlers provides HTTP handlers for the community directory:
// restaurant search, listings, menu board, and message history. These
// are read-mostly reference surfaces; the messaging engine only uses
// them to resolve display names and originate conversations.
type CommunityHandlers struct {
	store store.Store
	log   *zerolog.Logger
}

// NewCommunityHandlers creates a new community handlers instance.
func NewCommunityHandlers(st store.Store, logger *zerolog.Logger) *CommunityHandlers {
	return &CommunityHandlers{
		store: st,
		log:   logger,
	}
}

// UserResponse represents a restaurant account in API responses.
type UserResponse struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// ListingResponse represents a directory listing in API responses.
type ListingResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// CreateListingRequest represents the create listing request body.
type CreateListingRequest struct {
	Title       string `json:"title" binding:"required,min=1,max=128"`
	Description string `json:"description" binding:"max=1024"`
}

// MenuItemResponse represents a community menu item in API responses.
type MenuItemResponse struct {
	ID          string `json:"id"`
	UserID      string `json:"user_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	PriceCents  int64  `json:"price_cents"`
	CreatedAt   string `json:"created_at"`
}

// CreateMenuItemRequest represents the create menu item request body.
type CreateMenuItemRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=128"`
	Description string `json:"description" binding:"max=1024"`
	PriceCents  int64  `json:"price_cents" binding:"min=0"`
}

// MessageResponse represents a message in API responses.
type MessageResponse struct {
	ID             string `json:"id"`
	ConversationID string `json:"conversation_id"`
	SenderID       string `json:"sender_id"`
	ReceiverID     string `json:"receiver_id"`
	SenderName     string `json:"sender_name"`
	ReceiverName   string `json:"receiver_name"`
	Body           string `json:"body"`
	Kind           string `json:"kind"`
	Read           bool   `json:"read"`
	CreatedAt      string `json:"created_at"`
}

// SearchUsers handles restaurant search by display name.
// GET /api/users/search?q=...
func (h *CommunityHandlers) SearchUsers(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "query parameter q is required"})
		return
	}

	users, err := h.store.SearchUsers(c.Request.Context(), query)
	if err != nil {
		h.log.Error().Err(err).Str("query", query).Msg("failed to search users")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]UserResponse, 0, len(users))
	for _, u := range users {
		response = append(response, UserResponse{ID: u.ID, DisplayName: u.DisplayName})
	}
	c.JSON(http.StatusOK, response)
}

// SearchListings handles directory listing search.
// GET /api/listings?q=...
func (h *CommunityHandlers) SearchListings(c *gin.Context) {
	listings, err := h.store.SearchListings(c.Request.Context(), c.Query("q"), 20)
	if err != nil {
		h.log.Error().Err(err).Msg("failed to search listings")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]ListingResponse, 0, len(listings))
	for _, l := range listings {
		response = append(response, ListingResponse{
			ID:          l.ID,
			UserID:      l.UserID,
			Title:       l.Title,
			Description: l.Description,
			CreatedAt:   l.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// CreateListing handles listing creation.
// POST /api/listings
func (h *CommunityHandlers) CreateListing(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create listing request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	listing, err := h.store.CreateListing(c.Request.Context(), userID, req.Title, req.Description)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to create listing")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("listing_id", listing.ID).Str("user_id", userID).Msg("listing created")
	c.JSON(http.StatusCreated, ListingResponse{
		ID:          listing.ID,
		UserID:      listing.UserID,
		Title:       listing.Title,
		Description: listing.Description,
		CreatedAt:   listing.CreatedAt.Format(time.RFC3339),
	})
}

// ListMenuItems handles listing the caller's community menu items.
// GET /api/menu-items
func (h *CommunityHandlers) ListMenuItems(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	items, err := h.store.ListMenuItems(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list menu items")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MenuItemResponse, 0, len(items))
	for _, m := range items {
		response = append(response, MenuItemResponse{
			ID:          m.ID,
			UserID:      m.UserID,
			Name:        m.Name,
			Description: m.Description,
			PriceCents:  m.PriceCents,
			CreatedAt:   m.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}

// CreateMenuItem handles publishing a menu item to the community board.
// POST /api/menu-items
func (h *CommunityHandlers) CreateMenuItem(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	var req CreateMenuItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.log.Debug().Err(err).Msg("invalid create menu item request")
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	item, err := h.store.CreateMenuItem(c.Request.Context(), userID, req.Name, req.Description, req.PriceCents)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to create menu item")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	h.log.Info().Str("menu_item_id", item.ID).Str("user_id", userID).Msg("menu item created")
	c.JSON(http.StatusCreated, MenuItemResponse{
		ID:          item.ID,
		UserID:      item.UserID,
		Name:        item.Name,
		Description: item.Description,
		PriceCents:  item.PriceCents,
		CreatedAt:   item.CreatedAt.Format(time.RFC3339),
	})
}

// ListMessages handles fetching the caller's full message history,
// newest first, for clients that bootstrap state over REST.
// GET /api/messages
func (h *CommunityHandlers) ListMessages(c *gin.Context) {
	userID, ok := userIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	views, err := h.store.ListUserMessages(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Str("user_id", userID).Msg("failed to list messages")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error"})
		return
	}

	response := make([]MessageResponse, 0, len(views))
	for _, v := range views {
		response = append(response, MessageResponse{
			ID:             v.ID,
			ConversationID: v.ConversationID,
			SenderID:       v.SenderID,
			ReceiverID:     v.ReceiverID,
			SenderName:     v.SenderName,
			ReceiverName:   v.ReceiverName,
			Body:           v.Body,
			Kind:           string(v.Kind),
			Read:           v.Read,
			CreatedAt:      v.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, response)
}
