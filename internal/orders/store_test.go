package orders

import (
	"testing"

	"github.com/stitchboard/stitchboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestBuildOrderUpdateAlwaysBumpsUpdatedAt(t *testing.T) {
	set, args := buildOrderUpdate(models.OrderPatch{})

	require.Len(t, set, 1)
	assert.Equal(t, "updated_at=$1", set[0])
	require.Len(t, args, 1)
}

func TestBuildOrderUpdateNumbersPlaceholdersInOrder(t *testing.T) {
	qty := 3
	patch := models.OrderPatch{
		Status:   strPtr("done"),
		Notes:    strPtr("ready for fitting"),
		Quantity: &qty,
	}

	set, args := buildOrderUpdate(patch)

	require.Len(t, set, 4)
	assert.Equal(t, "quantity=$1", set[0])
	assert.Equal(t, "status=$2", set[1])
	assert.Equal(t, "notes=$3", set[2])
	assert.Equal(t, "updated_at=$4", set[3])

	require.Len(t, args, 4)
	assert.Equal(t, 3, args[0])
	assert.Equal(t, "done", args[1])
	assert.Equal(t, "ready for fitting", args[2])
}

func TestBuildOrderUpdateSkipsNilFields(t *testing.T) {
	patch := models.OrderPatch{DeliveryDate: strPtr("2025-07-01")}

	set, _ := buildOrderUpdate(patch)

	require.Len(t, set, 2)
	assert.Equal(t, "delivery_date=$1", set[0])
	assert.Equal(t, "updated_at=$2", set[1])
}

func TestBuildOrderUpdateClearsCustomerLink(t *testing.T) {
	// An explicit empty customer id detaches the order from the record.
	patch := models.OrderPatch{Customer: strPtr("")}

	set, args := buildOrderUpdate(patch)

	require.Len(t, set, 2)
	assert.Equal(t, "customer_id=$1", set[0])
	assert.Equal(t, nullString(""), args[0])
	assert.False(t, nullString("").Valid)
}

func TestBuildOrderUpdateTags(t *testing.T) {
	tags := []string{"Urgent", "VIP"}
	patch := models.OrderPatch{Tags: &tags}

	set, args := buildOrderUpdate(patch)

	require.Len(t, set, 2)
	assert.Equal(t, "tags=$1", set[0])
	require.Len(t, args, 2)
}
