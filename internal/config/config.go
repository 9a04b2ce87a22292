// Package config defines the JSON pipeline configuration for the cleaning
// run: which backend holds the sales table, what the columns are named, and
// which stages run with what options.
package config

// Pipeline is the root configuration document.
type Pipeline struct {
	Job     string  `json:"job"`
	Storage Storage `json:"storage"`
	Table   Table   `json:"table"`
	Loader  *Loader `json:"loader,omitempty"`
	Stages  Stages  `json:"stages"`
	Runtime Runtime `json:"runtime"`
	Audit   Audit   `json:"audit"`
}

type Storage struct {
	// Backend kind: "postgres" | "mssql" | "sqlite"
	Kind string `json:"kind"`

	// DSN may reference environment variables; it is expanded with
	// os.ExpandEnv before the backend sees it.
	DSN string `json:"dsn"`
}

// Table names the sales table and its columns. Every column name has a
// default matching the reference dataset; configs only override what differs.
type Table struct {
	Name    string  `json:"name"`
	Columns Columns `json:"columns"`
}

// Columns maps the record's semantic attributes onto physical column names.
type Columns struct {
	UniqueID        string `json:"unique_id"`
	ParcelID        string `json:"parcel_id"`
	SaleDate        string `json:"sale_date"`
	SaleDateClean   string `json:"sale_date_clean"`
	SalePrice       string `json:"sale_price"`
	PropertyAddress string `json:"property_address"`
	PropertyStreet  string `json:"property_street"`
	PropertyCity    string `json:"property_city"`
	OwnerAddress    string `json:"owner_address"`
	OwnerStreet     string `json:"owner_street"`
	OwnerCity       string `json:"owner_city"`
	OwnerState      string `json:"owner_state"`
	SoldAsVacant    string `json:"sold_as_vacant"`
	LegalReference  string `json:"legal_reference"`
	TaxDistrict     string `json:"tax_district"`
}

// Loader configures the optional CSV seeding step (-load).
type Loader struct {
	Path    string  `json:"path"`
	Options Options `json:"options"`
}

// Stages controls which cleaning stages run. All stages run by default;
// Disabled lists stage names to skip (useful when re-running a partially
// completed pipeline by hand). Options carries per-stage option bags keyed
// by stage name.
type Stages struct {
	Disabled []string           `json:"disabled,omitempty"`
	Options  map[string]Options `json:"options,omitempty"`
}

// Runtime controls pipeline execution behavior.
type Runtime struct {
	// BatchSize bounds the number of per-row updates sent to the backend in
	// one repository call. <=0 selects the default.
	BatchSize int `json:"batch_size"`
}

// Audit configures the cleaning-operation audit trail. Disabled by default.
type Audit struct {
	Enabled bool   `json:"enabled"`
	Table   string `json:"table,omitempty"`
}

// Known stage names, in execution order. The pipeline package asserts its
// stages match this list so config validation and execution cannot drift.
var StageNames = []string{
	"date_normalizer",
	"address_imputer",
	"address_splitter",
	"flag_normalizer",
	"deduplicator",
	"column_pruner",
}

const (
	DefaultTableName  = "sales"
	DefaultBatchSize  = 1024
	DefaultAuditTable = "cleaning_audit"
)

// ApplyDefaults fills zero-valued fields in place. Call after decoding and
// before Validate.
func (p *Pipeline) ApplyDefaults() {
	if p.Table.Name == "" {
		p.Table.Name = DefaultTableName
	}
	if p.Runtime.BatchSize <= 0 {
		p.Runtime.BatchSize = DefaultBatchSize
	}
	if p.Audit.Enabled && p.Audit.Table == "" {
		p.Audit.Table = DefaultAuditTable
	}
	p.Table.Columns.applyDefaults()
}

func (c *Columns) applyDefaults() {
	def := func(field *string, name string) {
		if *field == "" {
			*field = name
		}
	}
	def(&c.UniqueID, "unique_id")
	def(&c.ParcelID, "parcel_id")
	def(&c.SaleDate, "sale_date")
	def(&c.SaleDateClean, "sale_date_clean")
	def(&c.SalePrice, "sale_price")
	def(&c.PropertyAddress, "property_address")
	def(&c.PropertyStreet, "property_street")
	def(&c.PropertyCity, "property_city")
	def(&c.OwnerAddress, "owner_address")
	def(&c.OwnerStreet, "owner_street")
	def(&c.OwnerCity, "owner_city")
	def(&c.OwnerState, "owner_state")
	def(&c.SoldAsVacant, "sold_as_vacant")
	def(&c.LegalReference, "legal_reference")
	def(&c.TaxDistrict, "tax_district")
}

// StageOptions returns the option bag for a stage, never nil.
func (p *Pipeline) StageOptions(name string) Options {
	if o, ok := p.Stages.Options[name]; ok {
		return o
	}
	return Options{}
}

// StageDisabled reports whether a stage name appears in Stages.Disabled.
func (p *Pipeline) StageDisabled(name string) bool {
	for _, d := range p.Stages.Disabled {
		if d == name {
			return true
		}
	}
	return false
}
