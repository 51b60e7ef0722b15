package service

import (
	"github.com/smartcity/vnweather/internal/domain"
)

// Warehouse is re-exported from domain for convenience
type Warehouse = domain.Warehouse

var _ TableSource = (*Cache)(nil)
