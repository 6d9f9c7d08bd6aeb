package controller

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"groclist/models"
	"groclist/utils"
)

// Event is pushed to every connection subscribed to the list it concerns
type Event struct {
	Type    string      `json:"type"`
	ListID  uint        `json:"list_id"`
	Payload interface{} `json:"payload,omitempty"`
}

// Event types emitted on list and item mutations
const (
	EventListUpdated    = "list.updated"
	EventListDeleted    = "list.deleted"
	EventItemCreated    = "item.created"
	EventItemUpdated    = "item.updated"
	EventItemDeleted    = "item.deleted"
	EventItemsReordered = "items.reordered"
	EventMemberAdded    = "member.added"
	EventMemberRemoved  = "member.removed"
)

// Hub fans list change events out to websocket subscribers. A connection
// subscribes per list (membership-checked) and all of its subscriptions
// are released when it closes.
type Hub struct {
	mu   sync.Mutex
	subs map[uint]map[*websocket.Conn]bool
}

func NewHub() *Hub {
	return &Hub{
		subs: make(map[uint]map[*websocket.Conn]bool),
	}
}

func (h *Hub) subscribe(listID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.subs[listID] == nil {
		h.subs[listID] = make(map[*websocket.Conn]bool)
	}
	h.subs[listID][conn] = true
}

func (h *Hub) unsubscribe(listID uint, conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(listID, conn)
}

// dropConn releases every subscription held by a closing connection
func (h *Hub) dropConn(conn *websocket.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for listID := range h.subs {
		h.removeLocked(listID, conn)
	}
}

func (h *Hub) removeLocked(listID uint, conn *websocket.Conn) {
	if conns, ok := h.subs[listID]; ok {
		delete(conns, conn)
		if len(conns) == 0 {
			delete(h.subs, listID)
		}
	}
}

// Broadcast pushes an event to every subscriber of the list. Connections
// that fail to accept the write are dropped.
func (h *Hub) Broadcast(listID uint, ev Event) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for conn := range h.subs[listID] {
		if err := conn.WriteJSON(ev); err != nil {
			h.removeLocked(listID, conn)
			conn.Close()
		}
	}
}

type wsCommand struct {
	Action string `json:"action"` // subscribe, unsubscribe
	ListID uint   `json:"list_id"`
}

func wsError(message string) fiber.Map {
	return fiber.Map{"error": message}
}

// HandleListWS serves one websocket connection. The client authenticates
// with ?token= and then subscribes to the lists it wants updates for.
func (h *Hub) HandleListWS(db *gorm.DB, logger *logrus.Entry) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer func() {
			h.dropConn(c)
			c.Close()
		}()

		claims, err := utils.ParseJWTToken(c.Query("token"))
		if err != nil {
			c.WriteJSON(wsError("Invalid or expired token"))
			return
		}

		var user models.User
		if err := db.First(&user, claims.UserID).Error; err != nil || !user.IsActive {
			c.WriteJSON(wsError("User not found"))
			return
		}

		for {
			var cmd wsCommand
			if err := c.ReadJSON(&cmd); err != nil {
				return
			}

			switch cmd.Action {
			case "subscribe":
				var count int64
				db.Model(&models.ListMember{}).
					Where("list_id = ? AND user_id = ?", cmd.ListID, user.ID).
					Count(&count)
				if count == 0 {
					c.WriteJSON(wsError("Not a member of this list"))
					continue
				}
				h.subscribe(cmd.ListID, c)
				logger.WithFields(logrus.Fields{
					"user_id": user.ID,
					"list_id": cmd.ListID,
				}).Debug("Websocket subscribed")
			case "unsubscribe":
				h.unsubscribe(cmd.ListID, c)
			default:
				c.WriteJSON(wsError("Unknown action"))
			}
		}
	}
}
