package catalog

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

const (
	defaultProjectName = "Service Calculator"
	newServiceName     = "New service"
)

var (
	// ErrInvalidItem indicates a service line with an empty name or an invalid price.
	ErrInvalidItem = errors.New("service must have a name and a non-negative price")
	// ErrItemNotFound is returned when an index does not address an existing service.
	ErrItemNotFound = errors.New("service not found")
)

// Item is a billable service line.
type Item struct {
	Name  string  `json:"name" yaml:"name"`
	Price float64 `json:"price" yaml:"price"`
}

// Catalog is the ordered list of services plus the project it belongs to.
type Catalog struct {
	ProjectName string `json:"project_name" yaml:"project_name"`
	Services    []Item `json:"services" yaml:"services"`
}

// Clone returns a deep copy.
func (c Catalog) Clone() Catalog {
	out := Catalog{ProjectName: c.ProjectName, Services: make([]Item, len(c.Services))}
	copy(out.Services, c.Services)
	return out
}

// Prices returns the unit prices in catalog order.
func (c Catalog) Prices() []float64 {
	prices := make([]float64, len(c.Services))
	for i, item := range c.Services {
		prices[i] = item.Price
	}
	return prices
}

var defaultServices = []Item{
	{Name: "LO1", Price: 27.85},
	{Name: "LO2", Price: 14.91},
	{Name: "LO3", Price: 6.80},
	{Name: "LO4", Price: 6.80},
	{Name: "LO5", Price: 17.00},
	{Name: "LO6", Price: 6.80},
	{Name: "LO7", Price: 6.80},
	{Name: "LO8", Price: 12.20},
	{Name: "LO9", Price: 23.50},
	{Name: "L10", Price: 3.92},
	{Name: "L11", Price: 9.81},
	{Name: "L12", Price: 9.81},
	{Name: "L13", Price: 35.31},
	{Name: "L14", Price: 23.54},
	{Name: "L15", Price: 3.98},
	{Name: "L15a", Price: 6.93},
	{Name: "L16", Price: 104.61},
	{Name: "L17", Price: 88.26},
	{Name: "L17a", Price: 0.00},
	{Name: "L17b", Price: 0.00},
	{Name: "L16a", Price: 0.00},
	{Name: "L18", Price: 41.39},
	{Name: "L19", Price: 30.53},
	{Name: "L20", Price: 30.53},
	{Name: "L21", Price: 19.68},
	{Name: "L22", Price: 49.69},
	{Name: "L23", Price: 35.31},
	{Name: "L24", Price: 50.21},
	{Name: "L25", Price: 23.73},
	{Name: "L26", Price: 39.36},
	{Name: "L27", Price: 6.80},
	{Name: "L28", Price: 6.80},
	{Name: "L29", Price: 11.51},
	{Name: "L30", Price: 5.23},
	{Name: "L31", Price: 0.68},
	{Name: "L32+L33", Price: 0.68},
}

// DefaultCatalog returns a copy of the built-in service list.
func DefaultCatalog() Catalog {
	return Catalog{ProjectName: defaultProjectName, Services: defaultServices}.Clone()
}

func normalizeItem(item Item) (Item, error) {
	item.Name = strings.TrimSpace(item.Name)
	if item.Name == "" {
		return Item{}, fmt.Errorf("%w: empty name", ErrInvalidItem)
	}
	if math.IsNaN(item.Price) || math.IsInf(item.Price, 0) || item.Price < 0 {
		return Item{}, fmt.Errorf("%w: %q has price %v", ErrInvalidItem, item.Name, item.Price)
	}
	return item, nil
}

func normalizeCatalog(c Catalog) (Catalog, error) {
	out := Catalog{
		ProjectName: strings.TrimSpace(c.ProjectName),
		Services:    make([]Item, 0, len(c.Services)),
	}
	if out.ProjectName == "" {
		out.ProjectName = defaultProjectName
	}
	for i, item := range c.Services {
		normalized, err := normalizeItem(item)
		if err != nil {
			return Catalog{}, fmt.Errorf("service %d: %w", i, err)
		}
		out.Services = append(out.Services, normalized)
	}
	return out, nil
}
