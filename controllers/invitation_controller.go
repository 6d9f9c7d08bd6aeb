package controller

import (
	"errors"
	"strings"
	"time"

	"github.com/badoux/checkmail"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"groclist/models"
	"groclist/utils"
)

type InvitationController struct {
	DB     *gorm.DB
	Logger *logrus.Entry
	Hub    *Hub
	Mailer *utils.Mailer
}

func NewInvitationController(db *gorm.DB, logger *logrus.Entry, hub *Hub, mailer *utils.Mailer) *InvitationController {
	return &InvitationController{
		DB:     db,
		Logger: logger,
		Hub:    hub,
		Mailer: mailer,
	}
}

// CreateInvitation invites an email address to a list. Owner only. At most
// one pending invitation may exist per (list, email) pair.
func (vc *InvitationController) CreateInvitation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	var list models.GroceryList
	if err := vc.DB.First(&list, listID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "List not found", nil)
	}
	if !list.IsOwner(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the list owner can send invitations", nil)
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

	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := checkmail.ValidateFormat(email); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid email address", err)
	}

	if email == strings.ToLower(user.Email) {
		return utils.ErrorResponse(c, fiber.StatusConflict, "You already own this list", nil)
	}

	// A registered user who is already a member cannot be invited again
	var target models.User
	if err := vc.DB.Where("email = ?", email).First(&target).Error; err == nil {
		var count int64
		vc.DB.Model(&models.ListMember{}).
			Where("list_id = ? AND user_id = ?", list.ID, target.ID).
			Count(&count)
		if count > 0 {
			return utils.ErrorResponse(c, fiber.StatusConflict, "User is already a member", nil)
		}
	}

	var pending int64
	vc.DB.Model(&models.ListInvitation{}).
		Where("list_id = ? AND invited_email = ? AND status = ?", list.ID, email, models.InvitationPending).
		Count(&pending)
	if pending > 0 {
		return utils.ErrorResponse(c, fiber.StatusConflict, "An invitation for this email is already pending", nil)
	}

	invitation := models.ListInvitation{
		ListID:         list.ID,
		ListName:       list.Name,
		InvitedEmail:   email,
		InvitedBy:      user.ID,
		InvitedByEmail: user.Email,
		Token:          utils.NewInvitationToken(),
		Status:         models.InvitationPending,
	}
	if err := vc.DB.Create(&invitation).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to create invitation", err)
	}

	// Email delivery is best effort; the invitation stands either way
	if err := vc.Mailer.SendInvitation(&invitation); err != nil {
		utils.LogError("invitation_email_failed", err, map[string]interface{}{
			"invitation_id": invitation.ID,
			"list_id":       list.ID,
		})
	}

	utils.LogEvent("invitation_created", map[string]interface{}{
		"invitation_id": invitation.ID,
		"list_id":       list.ID,
		"invited_by":    user.ID,
	})

	return c.Status(fiber.StatusCreated).JSON(utils.SuccessResponse(invitation))
}

// GetMyInvitations returns pending invitations addressed to the caller
func (vc *InvitationController) GetMyInvitations(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)

	var invitations []models.ListInvitation
	err := vc.DB.
		Where("invited_email = ? AND status = ?", strings.ToLower(user.Email), models.InvitationPending).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch invitations", err)
	}

	return c.JSON(utils.SuccessResponse(invitations))
}

// GetListInvitations returns every invitation for a list. Owner only.
func (vc *InvitationController) GetListInvitations(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	listID := utils.ParseUint(c.Params("id"))

	var list models.GroceryList
	if err := vc.DB.First(&list, listID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "List not found", nil)
	}
	if !list.IsOwner(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the list owner can view invitations", nil)
	}

	var invitations []models.ListInvitation
	err := vc.DB.Where("list_id = ?", list.ID).
		Order("created_at DESC").
		Find(&invitations).Error
	if err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to fetch invitations", err)
	}

	return c.JSON(utils.SuccessResponse(invitations))
}

// RespondToInvitation accepts or declines a pending invitation. Only the
// invited identity (matched by email) may respond, exactly once. Accepting
// marks the invitation and adds the membership in one transaction.
func (vc *InvitationController) RespondToInvitation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	invitationID := utils.ParseUint(c.Params("id"))

	var input struct {
		Accept *bool `json:"accept" validate:"required"`
	}
	if err := c.BodyParser(&input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", err)
	}
	if err := utils.ValidateStruct(input); err != nil {
		return utils.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", err)
	}

	var invitation models.ListInvitation
	if err := vc.DB.First(&invitation, invitationID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusNotFound, "Invitation not found", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Database error", err)
	}

	if !strings.EqualFold(invitation.InvitedEmail, user.Email) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "This invitation is not addressed to you", nil)
	}
	if !invitation.IsPending() {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Invitation has already been responded to", nil)
	}

	now := time.Now()
	invitation.RespondedAt = &now
	if *input.Accept {
		invitation.Status = models.InvitationAccepted
	} else {
		invitation.Status = models.InvitationDeclined
	}

	err := vc.DB.Transaction(func(tx *gorm.DB) error {
		// Guard against a concurrent response to the same invitation
		result := tx.Model(&models.ListInvitation{}).
			Where("id = ? AND status = ?", invitation.ID, models.InvitationPending).
			Updates(map[string]interface{}{
				"status":       invitation.Status,
				"responded_at": invitation.RespondedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}

		if invitation.Status != models.InvitationAccepted {
			return nil
		}

		var count int64
		if err := tx.Model(&models.ListMember{}).
			Where("list_id = ? AND user_id = ?", invitation.ListID, user.ID).
			Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return nil
		}
		member := models.ListMember{ListID: invitation.ListID, UserID: user.ID}
		return tx.Create(&member).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return utils.ErrorResponse(c, fiber.StatusConflict, "Invitation has already been responded to", nil)
		}
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to respond to invitation", err)
	}

	if invitation.Status == models.InvitationAccepted {
		vc.Hub.Broadcast(invitation.ListID, Event{
			Type:   EventMemberAdded,
			ListID: invitation.ListID,
			Payload: fiber.Map{
				"user_id": user.ID,
				"email":   user.Email,
			},
		})
	}

	utils.LogEvent("invitation_responded", map[string]interface{}{
		"invitation_id": invitation.ID,
		"status":        invitation.Status,
		"user_id":       user.ID,
	})

	return c.JSON(utils.SuccessResponse(invitation))
}

// RevokeInvitation withdraws a pending invitation. Owner only.
func (vc *InvitationController) RevokeInvitation(c *fiber.Ctx) error {
	user := c.Locals("user").(*models.User)
	invitationID := utils.ParseUint(c.Params("id"))

	var invitation models.ListInvitation
	if err := vc.DB.First(&invitation, invitationID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "Invitation not found", nil)
	}

	var list models.GroceryList
	if err := vc.DB.First(&list, invitation.ListID).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusNotFound, "List not found", nil)
	}
	if !list.IsOwner(user.ID) {
		return utils.ErrorResponse(c, fiber.StatusForbidden, "Only the list owner can revoke invitations", nil)
	}
	if !invitation.IsPending() {
		return utils.ErrorResponse(c, fiber.StatusConflict, "Only pending invitations can be revoked", nil)
	}

	if err := vc.DB.Delete(&invitation).Error; err != nil {
		return utils.ErrorResponse(c, fiber.StatusInternalServerError, "Failed to revoke invitation", err)
	}

	return c.JSON(fiber.Map{"message": "Invitation revoked successfully"})
}
