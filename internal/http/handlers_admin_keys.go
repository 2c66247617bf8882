package http

import (
	"database/sql"
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"trailhead/internal/store"
)

func adminKeyCreateHandler(c *fiber.Ctx) error {
	var reqBody APIKeyCreateRequest
	if err := c.BodyParser(&reqBody); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST_INVALID_JSON",
			Error:   "Bad request, malformed JSON",
		})
	}

	if reqBody.Label == "" {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "Missing required field 'label'",
		})
	}

	st := c.Locals("store").(*store.Store)
	raw, key, err := st.CreateRandomAPIKey(c.Context(), reqBody.Label, reqBody.IsAdmin, reqBody.RateLimitPerMinute)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "API_KEY_CREATE_FAILED",
			Error:   err.Error(),
		})
	}

	return c.Status(fiber.StatusCreated).JSON(APIKeyCreateResponse{
		Success: true,
		Key:     raw,
		Data:    apiKeyView(key),
	})
}

func adminKeysListHandler(c *fiber.Ctx) error {
	st := c.Locals("store").(*store.Store)

	keys, err := st.ListAPIKeys(c.Context())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "API_KEYS_LIST_FAILED",
			Error:   err.Error(),
		})
	}

	views := make([]APIKeyView, 0, len(keys))
	for _, key := range keys {
		views = append(views, apiKeyView(key))
	}
	return c.JSON(APIKeysListResponse{Success: true, Data: views})
}

func adminKeyRevokeHandler(c *fiber.Ctx) error {
	keyID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Success: false,
			Code:    "BAD_REQUEST",
			Error:   "invalid api key id",
		})
	}

	st := c.Locals("store").(*store.Store)
	if err := st.RevokeAPIKey(c.Context(), keyID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return c.Status(fiber.StatusNotFound).JSON(ErrorResponse{
				Success: false,
				Code:    "NOT_FOUND",
				Error:   "api key not found or already revoked",
			})
		}
		return c.Status(fiber.StatusInternalServerError).JSON(ErrorResponse{
			Success: false,
			Code:    "API_KEY_REVOKE_FAILED",
			Error:   err.Error(),
		})
	}

	return c.JSON(fiber.Map{"success": true, "id": keyID.String()})
}

func apiKeyView(key store.APIKey) APIKeyView {
	view := APIKeyView{
		ID:        key.ID.String(),
		Label:     key.Label,
		IsAdmin:   key.IsAdmin,
		CreatedAt: key.CreatedAt,
		Revoked:   key.RevokedAt.Valid,
	}
	if key.RateLimitPerMinute.Valid {
		v := key.RateLimitPerMinute.Int32
		view.RateLimitPerMinute = &v
	}
	return view
}
