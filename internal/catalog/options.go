package catalog

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
)

// PriceBucket es un rango de precio con nombre. Min y Max son inclusivos; nil = sin cota.
type PriceBucket struct {
	Key string
	Min *decimal.Decimal
	Max *decimal.Decimal
}

// Contains indica si el precio cae dentro del rango.
func (bucket PriceBucket) Contains(price decimal.Decimal) bool {
	if bucket.Min != nil && price.LessThan(*bucket.Min) {
		return false
	}
	if bucket.Max != nil && price.GreaterThan(*bucket.Max) {
		return false
	}
	return true
}

// Options es la configuración inmutable del catálogo: tamaños de página y rangos de precio.
// Se construye una vez y se inyecta en el service; los getters devuelven copias.
type Options struct {
	defaultLimit  int
	allowedLimits []int
	priceBuckets  []PriceBucket
}

// NewOptions valida y congela una configuración.
func NewOptions(defaultLimit int, allowedLimits []int, buckets []PriceBucket) (Options, error) {
	if len(allowedLimits) == 0 {
		return Options{}, errors.New("allowed limits must not be empty")
	}
	for _, limit := range allowedLimits {
		if limit < 1 {
			return Options{}, fmt.Errorf("allowed limit must be positive: %d", limit)
		}
	}
	if !slices.Contains(allowedLimits, defaultLimit) {
		return Options{}, fmt.Errorf("default limit %d is not an allowed limit", defaultLimit)
	}

	seen := make(map[string]bool, len(buckets))
	for _, bucket := range buckets {
		if strings.TrimSpace(bucket.Key) == "" {
			return Options{}, errors.New("price bucket key must not be empty")
		}
		if seen[bucket.Key] {
			return Options{}, fmt.Errorf("duplicate price bucket %q", bucket.Key)
		}
		seen[bucket.Key] = true

		if bucket.Min == nil && bucket.Max == nil {
			return Options{}, fmt.Errorf("price bucket %q needs min or max", bucket.Key)
		}
		if bucket.Min != nil && bucket.Min.IsNegative() {
			return Options{}, fmt.Errorf("price bucket %q has a negative min", bucket.Key)
		}
		if bucket.Min != nil && bucket.Max != nil && bucket.Min.GreaterThan(*bucket.Max) {
			return Options{}, fmt.Errorf("price bucket %q has min greater than max", bucket.Key)
		}
	}

	return Options{
		defaultLimit:  defaultLimit,
		allowedLimits: slices.Clone(allowedLimits),
		priceBuckets:  slices.Clone(buckets),
	}, nil
}

// DefaultOptions devuelve la tabla que usa el storefront: páginas de 20/50/100 y cuatro rangos de precio.
func DefaultOptions() Options {
	options, err := NewOptions(20, []int{20, 50, 100}, defaultPriceBuckets())
	if err != nil {
		panic(err)
	}
	return options
}

func defaultPriceBuckets() []PriceBucket {
	return []PriceBucket{
		{Key: "under-50", Max: decimalPtr("49.99")},
		{Key: "50-99", Min: decimalPtr("50"), Max: decimalPtr("99.99")},
		{Key: "100-249", Min: decimalPtr("100"), Max: decimalPtr("249.99")},
		{Key: "250-plus", Min: decimalPtr("250")},
	}
}

func decimalPtr(value string) *decimal.Decimal {
	parsed := decimal.RequireFromString(value)
	return &parsed
}

// DefaultLimit es el tamaño de página cuando limit falta o no está permitido.
func (options Options) DefaultLimit() int {
	return options.defaultLimit
}

// AllowedLimits devuelve una copia de los tamaños de página permitidos.
func (options Options) AllowedLimits() []int {
	return slices.Clone(options.allowedLimits)
}

// PriceBuckets devuelve una copia de la tabla de rangos.
func (options Options) PriceBuckets() []PriceBucket {
	return slices.Clone(options.priceBuckets)
}

// IsAllowedLimit indica si limit está en la lista permitida.
func (options Options) IsAllowedLimit(limit int) bool {
	return slices.Contains(options.allowedLimits, limit)
}

// Bucket busca un rango por su clave.
func (options Options) Bucket(key string) (PriceBucket, bool) {
	for _, bucket := range options.priceBuckets {
		if bucket.Key == key {
			return bucket, true
		}
	}
	return PriceBucket{}, false
}

type optionsFile struct {
	DefaultLimit  int               `toml:"default_limit"`
	AllowedLimits []int             `toml:"allowed_limits"`
	PriceBuckets  []priceBucketFile `toml:"price_buckets"`
}

type priceBucketFile struct {
	Key string `toml:"key"`
	Min string `toml:"min"`
	Max string `toml:"max"`
}

// LoadOptions lee la configuración del catálogo desde un archivo TOML.
// Lo que no esté en el archivo conserva el valor por defecto.
//
//	default_limit = 25
//	allowed_limits = [25, 50]
//
//	[[price_buckets]]
//	key = "under-10"
//	max = "9.99"
func LoadOptions(path string) (Options, error) {
	var file optionsFile
	metadata, err := toml.DecodeFile(path, &file)
	if err != nil {
		return Options{}, fmt.Errorf("decode catalog options: %w", err)
	}
	if undecoded := metadata.Undecoded(); len(undecoded) > 0 {
		return Options{}, fmt.Errorf("unknown catalog option %q", undecoded[0].String())
	}

	defaults := DefaultOptions()

	allowedLimits := defaults.AllowedLimits()
	if metadata.IsDefined("allowed_limits") {
		allowedLimits = file.AllowedLimits
	}

	defaultLimit := defaults.DefaultLimit()
	if metadata.IsDefined("default_limit") {
		defaultLimit = file.DefaultLimit
	} else if !slices.Contains(allowedLimits, defaultLimit) && len(allowedLimits) > 0 {
		defaultLimit = allowedLimits[0]
	}

	buckets := defaults.PriceBuckets()
	if metadata.IsDefined("price_buckets") {
		buckets = make([]PriceBucket, 0, len(file.PriceBuckets))
		for _, entry := range file.PriceBuckets {
			bucket := PriceBucket{Key: strings.TrimSpace(entry.Key)}
			if bucket.Min, err = parseBound(entry.Min); err != nil {
				return Options{}, fmt.Errorf("price bucket %q min: %w", entry.Key, err)
			}
			if bucket.Max, err = parseBound(entry.Max); err != nil {
				return Options{}, fmt.Errorf("price bucket %q max: %w", entry.Key, err)
			}
			buckets = append(buckets, bucket)
		}
	}

	return NewOptions(defaultLimit, allowedLimits, buckets)
}

func parseBound(value string) (*decimal.Decimal, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}
	parsed, err := decimal.NewFromString(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}
