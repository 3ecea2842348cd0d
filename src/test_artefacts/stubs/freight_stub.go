package stubs

import (
	"encoding/json"
	"time"

	"freightapi/src/domain/entities"

	"github.com/brianvoe/gofakeit/v6"
)

var freightStatuses = []string{"pending", "In Transit", "delivered", "cancelled", "awaiting pickup"}

type FreightStub struct {
	freight entities.Freight
}

func NewFreightStub() FreightStub {
	now := time.Now().UTC()
	status := gofakeit.RandomString(freightStatuses)

	attributes := map[string]interface{}{
		"origin":      gofakeit.City(),
		"destination": gofakeit.City(),
		"weight":      gofakeit.Number(1, 30000),
		"carrier":     gofakeit.Company(),
	}
	attributesJSON, _ := json.Marshal(attributes)

	freight := entities.Freight{
		ID:         gofakeit.Int64(),
		Status:     &status,
		Attributes: attributesJSON,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	return FreightStub{freight: freight}
}

func (fs FreightStub) WithID(id int64) FreightStub {
	fs.freight.ID = id
	return fs
}

func (fs FreightStub) WithStatus(status string) FreightStub {
	fs.freight.Status = &status
	return fs
}

func (fs FreightStub) WithoutStatus() FreightStub {
	fs.freight.Status = nil
	return fs
}

func (fs FreightStub) WithAttributes(attributes map[string]interface{}) FreightStub {
	attributesJSON, _ := json.Marshal(attributes)
	fs.freight.Attributes = attributesJSON
	return fs
}

func (fs FreightStub) WithoutAttributes() FreightStub {
	fs.freight.Attributes = nil
	return fs
}

func (fs FreightStub) WithTimestamps(createdAt, updatedAt time.Time) FreightStub {
	fs.freight.CreatedAt = createdAt
	fs.freight.UpdatedAt = updatedAt
	return fs
}

func (fs FreightStub) Get() entities.Freight {
	return fs.freight
}
