package adminapi

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/talkincode/retailhub/internal/domain"
	"github.com/talkincode/retailhub/internal/webserver"
	"github.com/talkincode/retailhub/pkg/common"
)

func registerContactRoutes() {
	webserver.ApiGET("/user/contacts", listContacts)
	webserver.ApiGET("/user/contacts/:id", getContact)
	webserver.ApiPOST("/user/contacts", createContact)
	webserver.ApiPUT("/user/contacts/:id", updateContact)
	webserver.ApiDELETE("/user/contacts/:id", deleteContact)
}

type contactPayload struct {
	City      string `json:"city" validate:"required,max=50"`
	Street    string `json:"street" validate:"required,max=100"`
	House     string `json:"house" validate:"max=15"`
	Structure string `json:"structure" validate:"max=15"`
	Building  string `json:"building" validate:"max=15"`
	Apartment string `json:"apartment" validate:"max=15"`
	Phone     string `json:"phone" validate:"required,max=20"`
}

// contactUpdatePayload only changes the fields that are present
type contactUpdatePayload struct {
	City      *string `json:"city" validate:"omitempty,max=50"`
	Street    *string `json:"street" validate:"omitempty,max=100"`
	House     *string `json:"house" validate:"omitempty,max=15"`
	Structure *string `json:"structure" validate:"omitempty,max=15"`
	Building  *string `json:"building" validate:"omitempty,max=15"`
	Apartment *string `json:"apartment" validate:"omitempty,max=15"`
	Phone     *string `json:"phone" validate:"omitempty,max=20"`
}

func (p *contactPayload) trim() {
	for _, s := range []*string{&p.City, &p.Street, &p.House, &p.Structure, &p.Building, &p.Apartment, &p.Phone} {
		*s = strings.TrimSpace(*s)
	}
}

func listContacts(c echo.Context) error {
	page, pageSize := parsePagination(c)

	base := GetDB(c).Model(&domain.Contact{}).Where("user_id = ?", currentUser(c).Uid)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query contacts", err.Error())
	}

	var contacts []domain.Contact
	if err := base.Order("id DESC").Offset((page-1)*pageSize).Limit(pageSize).Find(&contacts).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query contacts", err.Error())
	}
	return paged(c, contacts, total, page, pageSize)
}

// findContact loads a contact of the current user; other users' contacts are reported as missing
func findContact(c echo.Context) (*domain.Contact, error) {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return nil, fail(c, http.StatusBadRequest, "INVALID_ID", "Invalid contact ID", nil)
	}
	var contact domain.Contact
	err = GetDB(c).Where("id = ? AND user_id = ?", id, currentUser(c).Uid).First(&contact).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fail(c, http.StatusNotFound, "CONTACT_NOT_FOUND", "Contact not found", nil)
	} else if err != nil {
		return nil, fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to query contact", err.Error())
	}
	return &contact, nil
}

func getContact(c echo.Context) error {
	contact, err := findContact(c)
	if contact == nil {
		return err
	}
	return ok(c, contact)
}

func createContact(c echo.Context) error {
	var payload contactPayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse contact", nil)
	}
	payload.trim()
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}

	contact := domain.Contact{
		ID:        common.UUIDint64(),
		UserId:    currentUser(c).Uid,
		City:      payload.City,
		Street:    payload.Street,
		House:     payload.House,
		Structure: payload.Structure,
		Building:  payload.Building,
		Apartment: payload.Apartment,
		Phone:     payload.Phone,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := GetDB(c).Create(&contact).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to create contact", err.Error())
	}
	return created(c, contact)
}

func updateContact(c echo.Context) error {
	var payload contactUpdatePayload
	if err := c.Bind(&payload); err != nil {
		return fail(c, http.StatusBadRequest, "INVALID_REQUEST", "Unable to parse contact", nil)
	}
	if err := c.Validate(&payload); err != nil {
		return handleValidationError(c, err)
	}
	contact, err := findContact(c)
	if contact == nil {
		return err
	}

	updates := map[string]interface{}{}
	set := func(column string, v *string, required bool) {
		if v == nil {
			return
		}
		val := strings.TrimSpace(*v)
		if required && val == "" {
			return
		}
		updates[column] = val
	}
	set("city", payload.City, true)
	set("street", payload.Street, true)
	set("house", payload.House, false)
	set("structure", payload.Structure, false)
	set("building", payload.Building, false)
	set("apartment", payload.Apartment, false)
	set("phone", payload.Phone, true)
	updates["updated_at"] = time.Now()

	if err := GetDB(c).Model(contact).Updates(updates).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to update contact", err.Error())
	}
	GetDB(c).Where("id = ?", contact.ID).First(contact)
	return ok(c, contact)
}

func deleteContact(c echo.Context) error {
	contact, err := findContact(c)
	if contact == nil {
		return err
	}
	db := GetDB(c)
	// orders keep their lines but lose the delivery address
	if err := db.Model(&domain.Order{}).Where("contact_id = ?", contact.ID).Update("contact_id", nil).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete contact", err.Error())
	}
	if err := db.Delete(&domain.Contact{}, contact.ID).Error; err != nil {
		return fail(c, http.StatusInternalServerError, "DATABASE_ERROR", "Failed to delete contact", err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}
