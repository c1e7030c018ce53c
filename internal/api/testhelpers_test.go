package api

import "rhystmorgan/contactbook/internal/models"

func testContact(id int) models.Contact {
	return models.Contact{
		ID:     id,
		Name:   "Cached Contact",
		Phones: []models.Phone{{PhoneNumber: "5550100"}},
	}
}
