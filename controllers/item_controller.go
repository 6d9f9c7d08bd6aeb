package controller

import (
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"groclist/models"
	"groclist/utils"
)

type ItemController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
	Hub    *Hub
	Engine *utils.SuggestionEngine
}

func NewItemController(db *gorm.DB, logger *logrus.Entry, hub *Hub, engine *utils.SuggestionEngine) *ItemController {
	return &ItemController{
		DB:     db,
		Logger: logger,
		Hub:    hub,
		Engine: engine,
	}
}

func (ic *ItemController) isMember(listID, userID uint) bool {
	var count int64
	ic.DB.Model(&models.ListMember{}).
		Where("list_id = ? AND user_id = ?", listID, userID).
		Count(&count)
	return count > 0
}

// findItem loads an item and checks the caller's membership on its list.
// Returns nil when the response has already been written.
func (ic *ItemController) findItem(c *fiber.Ctx, itemID, userID uint) *models.GroceryItem {
	var item models.GroceryItem
	if err := ic.DB.First(&item, itemID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, fiber.StatusNotFound, "Item not found", nil)
		} else {
			utils.ErrorResponse(c, fiber.StatusInternalServerError, "Database error", err)
		}
		return nil
	}
	if !ic.isMember(item.ListID, userID) {
		utils.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this list", nil)
		return nil
	}
	return &item
}

// CreateItem adds an item to a list. The position sort key is assigned
// monotonically per list inside the insert transaction, and the new item's
// co-occurrence with the list's other active items is recorded afterwards.
func (ic *ItemController) CreateItem(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	if !ic.isMember(listID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this list", nil)
	}

	var input struct {
		Name     string `json:"name" validate:"required,max=200"`
		Quantity int    `json:"quantity" validate:"omitempty,gt=0"`
		Unit     string `json:"unit" validate:"omitempty,max=20"`
		Category string `json:"category" validate:"omitempty,max=100"`
		Note     string `json:"note" validate:"omitempty,max=500"`
		Favorite bool   `json:"favorite"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	item := models.GroceryItem{
		ListID:    listID,
		Name:      input.Name,
		Quantity:  input.Quantity,
		Unit:      input.Unit,
		Category:  input.Category,
		Note:      input.Note,
		Favorite:  input.Favorite,
		CreatedBy: user.ID,
	}

	err := ic.DB.Transaction(func(tx *gorm.DB) error {
		var maxPosition int
		if err := tx.Model(&models.GroceryItem{}).
			Where("list_id = ?", listID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPosition).Error; err != nil {
			return err
		}
		item.Position = maxPosition + 1
		return tx.Create(&item).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create item", err)
	}

	// Suggestions are a best-effort hint: a correlation failure must not
	// undo the item write.
	if err := ic.Engine.RecordCoOccurrence(user.ID, listID, item.Name); err != nil {
		utils.LogError("record_co_occurrence_failed", err, map[string]interface{}{
			"user_id": user.ID,
			"list_id": listID,
			"item":    item.Name,
		})
	}

	ic.Hub.Broadcast(listID, Event{Type: EventItemCreated, ListID: listID, Payload: item})
	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(item))
}

// GetItems returns the list's items ordered by position
func (ic *ItemController) GetItems(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	if !ic.isMember(listID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this list", nil)
	}

	var items []models.GroceryItem
	err := ic.DB.Where("list_id = ?", listID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch items", err)
	}

	return c.JSON(utils.SuccessResponse(items))
}

// UpdateItem patches item fields. Completing an item stamps CompletedBy and
// CompletedAt together; un-completing clears both.
func (ic *ItemController) UpdateItem(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	itemID := utils.ParseUint(c.Params("itemID"))

	item := ic.findItem(c, itemID, user.ID)
	if item == nil {
		return nil
	}

	var input struct {
		Name      *string `json:"name" validate:"omitempty,max=200"`
		Quantity  *int    `json:"quantity" validate:"omitempty,gt=0"`
		Unit      *string `json:"unit" validate:"omitempty,max=20"`
		Category  *string `json:"category" validate:"omitempty,max=100"`
		Note      *string `json:"note" validate:"omitempty,max=500"`
		Favorite  *bool   `json:"favorite"`
		Completed *bool   `json:"completed"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if input.Name != nil {
		item.Name = *input.Name
	}
	if input.Quantity != nil {
		item.Quantity = *input.Quantity
	}
	if input.Unit != nil {
		item.Unit = *input.Unit
	}
	if input.Category != nil {
		item.Category = *input.Category
	}
	if input.Note != nil {
		item.Note = *input.Note
	}
	if input.Favorite != nil {
		item.Favorite = *input.Favorite
	}
	if input.Completed != nil && *input.Completed != item.Completed {
		item.Completed = *input.Completed
		if item.Completed {
			now := time.Now()
			item.CompletedBy = &user.ID
			item.CompletedAt = &now
		} else {
			item.CompletedBy = nil
			item.CompletedAt = nil
		}
	}

	// Save with Select so clearing CompletedBy/CompletedAt persists
	err := ic.DB.Model(item).
		Select("Name", "Quantity", "Unit", "Category", "Note", "Favorite",
			"Completed", "CompletedBy", "CompletedAt").
		Updates(item).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update item", err)
	}

	ic.Hub.Broadcast(item.ListID, Event{Type: EventItemUpdated, ListID: item.ListID, Payload: item})
	return c.JSON(utils.SuccessResponse(item))
}

func (ic *ItemController) DeleteItem(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	itemID := utils.ParseUint(c.Params("itemID"))

	item := ic.findItem(c, itemID, user.ID)
	if item == nil {
		return nil
	}

	if err := ic.DB.Delete(item).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete item", err)
	}

	ic.Hub.Broadcast(item.ListID, Event{Type: EventItemDeleted, ListID: item.ListID, Payload: fiber.Map{
		"item_id": item.ID,
	}})
	return c.JSON(fiber.Map{"message": "Item deleted successfully"})
}

// ReorderItems applies a batch of (item_id, position) pairs in one
// transaction. An item outside the list aborts the whole batch. Submitted
// positions are taken as-is; uniqueness is the caller's responsibility.
func (ic *ItemController) ReorderItems(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	if !ic.isMember(listID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this list", nil)
	}

	var input struct {
		Updates []struct {
			ItemID   uint `json:"item_id" validate:"required"`
			Position int  `json:"position"`
		} `json:"updates" validate:"required,min=1,dive"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	err := ic.DB.Transaction(func(tx *gorm.DB) error {
		for _, update := range input.Updates {
			result := tx.Model(&models.GroceryItem{}).
				Where("id = ? AND list_id = ?", update.ItemID, listID).
				Update("position", update.Position)
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected == 0 {
				return gorm.ErrRecordNotFound
			}
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Item not found on this list", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to reorder items", err)
	}

	ic.Hub.Broadcast(listID, Event{Type: EventItemsReordered, ListID: listID})
	return c.JSON(fiber.Map{"message": "Items reordered successfully"})
}

// GetSuggestions returns item names likely to belong on the list, ranked
// by the caller's co-occurrence history
func (ic *ItemController) GetSuggestions(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	if !ic.isMember(listID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this list", nil)
	}

	limit, _ := strconv.Atoi(c.Query("limit", "5"))
	if limit > 20 {
		limit = 20
	}

	suggestions, err := ic.Engine.Suggest(user.ID, listID, limit)
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch suggestions", err)
	}

	return c.JSON(utils.SuccessResponse(suggestions))
}
