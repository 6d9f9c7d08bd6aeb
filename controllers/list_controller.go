package controller

import (
	"errors"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"groclist/models"
	"groclist/utils"
)

type ListController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
	Hub    *Hub
}

func NewListController(db *gorm.DB, logger *logrus.Entry, hub *Hub) *ListController {
	return &ListController{
		DB:     db,
		Logger: logger,
		Hub:    hub,
	}
}

// findList loads a list or replies 404. Returns nil when the response has
// already been written.
func (lc *ListController) findList(c *fiber.Ctx, listID uint) *models.GroceryList {
	var list models.GroceryList
	if err := lc.DB.First(&list, listID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.ErrorResponse(c, fiber.StatusNotFound, "List not found", nil)
		} else {
			utils.ErrorResponse(c, fiber.StatusInternalServerError, "Database error", err)
		}
		return nil
	}
	return &list
}

func (lc *ListController) isMember(listID, userID uint) bool {
	var count int64
	lc.DB.Model(&models.ListMember{}).
		Where("list_id = ? AND user_id = ?", listID, userID).
		Count(&count)
	return count > 0
}

// CreateList creates a list with the caller as owner and sole member
func (lc *ListController) CreateList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var input struct {
		Name string `json:"name" validate:"required,max=200"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	list := models.GroceryList{
		Name:      input.Name,
		CreatedBy: user.ID,
	}

	// List and owner membership are created together
	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&list).Error; err != nil {
			return err
		}
		member := models.ListMember{ListID: list.ID, UserID: user.ID}
		return tx.Create(&member).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create list", err)
	}

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(list))
}

// GetLists returns every list the caller is a member of
func (lc *ListController) GetLists(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var lists []models.GroceryList
	err := lc.DB.
		Joins("JOIN list_members ON list_members.list_id = grocery_lists.id").
		Where("list_members.user_id = ?", user.ID).
		Order("grocery_lists.created_at DESC").
		Find(&lists).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch lists", err)
	}

	return c.JSON(utils.SuccessResponse(lists))
}

func (lc *ListController) GetList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	if !lc.isMember(listID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this list", nil)
	}

	var list models.GroceryList
	err := lc.DB.
		Preload("Items", func(db *gorm.DB) *gorm.DB {
			return db.Order("grocery_items.position ASC")
		}).
		Preload("Members.User").
		First(&list, listID).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "List not found", nil)
	}

	return c.JSON(utils.SuccessResponse(list))
}

// UpdateList renames a list. Owner only.
func (lc *ListController) UpdateList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	list := lc.findList(c, listID)
	if list == nil {
		return nil
	}
	if !list.IsOwner(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the list owner can rename the list", nil)
	}

	var input struct {
		Name string `json:"name" validate:"required,max=200"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	if err := lc.DB.Model(list).Update("name", input.Name).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to update list", err)
	}

	lc.Hub.Broadcast(list.ID, Event{Type: EventListUpdated, ListID: list.ID, Payload: list})
	return c.JSON(utils.SuccessResponse(list))
}

// DeleteList removes the list together with its items, memberships and
// invitations in one transaction, so a partial delete is never observable.
// Owner only.
func (lc *ListController) DeleteList(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	list := lc.findList(c, listID)
	if list == nil {
		return nil
	}
	if !list.IsOwner(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the list owner can delete the list", nil)
	}

	err := lc.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("list_id = ?", list.ID).Delete(&models.GroceryItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", list.ID).Delete(&models.ListMember{}).Error; err != nil {
			return err
		}
		if err := tx.Where("list_id = ?", list.ID).Delete(&models.ListInvitation{}).Error; err != nil {
			return err
		}
		return tx.Delete(list).Error
	})
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to delete list", err)
	}

	lc.Hub.Broadcast(list.ID, Event{Type: EventListDeleted, ListID: list.ID})
	utils.LogEvent("list_deleted", map[string]interface{}{
		"list_id": list.ID,
		"user_id": user.ID,
	})

	return c.JSON(fiber.Map{"message": "List deleted successfully"})
}

// GetMembers returns member rows with user profiles. Member only.
func (lc *ListController) GetMembers(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	if !lc.isMember(listID, user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Not a member of this list", nil)
	}

	var members []models.ListMember
	err := lc.DB.Preload("User").
		Where("list_id = ?", listID).
		Find(&members).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch members", err)
	}

	return c.JSON(utils.SuccessResponse(members))
}

// AddMember adds an existing user to the list by email. Owner only.
func (lc *ListController) AddMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	list := lc.findList(c, listID)
	if list == nil {
		return nil
	}
	if !list.IsOwner(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the list owner can add members", nil)
	}

	var input struct {
		Email string `json:"email" validate:"required,email"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var target models.User
	if err := lc.DB.Where("email = ?", input.Email).First(&target).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "User not found", nil)
	}

	if lc.isMember(list.ID, target.ID) {
		return utils.ErrorResponse(c, fiber.StatusConflict, "User is already a member", nil)
	}

	member := models.ListMember{ListID: list.ID, UserID: target.ID}
	if err := lc.DB.Create(&member).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to add member", err)
	}

	lc.Hub.Broadcast(list.ID, Event{Type: EventMemberAdded, ListID: list.ID, Payload: fiber.Map{
		"user_id": target.ID,
		"email":   target.Email,
	}})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(member))
}

// RemoveMember drops a member from the list. Owner only; the owner
// themselves can never be removed.
func (lc *ListController) RemoveMember(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))
	targetID := utils.ParseUint(c.Params("userID"))

	list := lc.findList(c, listID)
	if list == nil {
		return nil
	}
	if !list.IsOwner(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the list owner can remove members", nil)
	}
	if targetID == list.CreatedBy {
		return utils.ErrorResponse(c, fiber.StatusConflict, "The list owner cannot be removed", nil)
	}

	result := lc.DB.Where("list_id = ? AND user_id = ?", list.ID, targetID).
		Delete(&models.ListMember{})
	if result.Error != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to remove member", result.Error)
	}
	if result.RowsAffected == 0 {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Member not found", nil)
	}

	lc.Hub.Broadcast(list.ID, Event{Type: EventMemberRemoved, ListID: list.ID, Payload: fiber.Map{
		"user_id": targetID,
	}})

	return c.JSON(fiber.Map{"message": "Member removed successfully"})
}
