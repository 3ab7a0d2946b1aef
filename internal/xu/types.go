package xu

// Extraction is an extraction definition as listed by the metadata service
type Extraction struct {
	Name        string `json:"name"                  csv:"name"`
	Type        string `json:"type"                  csv:"type"`
	Source      string `json:"source"                csv:"source"`
	Destination string `json:"destination,omitempty" csv:"destination,omitempty"`
}

// Column is one result column of an extraction. Optional fields are nil when
// the service omits them, which is distinct from a zero value.
type Column struct {
	Name          string  `json:"name"`
	Type          string  `json:"type"`
	IsPrimaryKey  bool    `json:"isPrimaryKey"`
	Length        *int    `json:"length,omitempty"`
	DecimalsCount *int    `json:"decimalsCount,omitempty"`
	Description   *string `json:"description,omitempty"`
}

// Parameter is a custom run parameter of an extraction
type Parameter struct {
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Description *string `json:"description,omitempty"`
}

type extractionsResponse struct {
	Extractions []Extraction `json:"extractions"`
}

type columnsResponse struct {
	Columns []Column `json:"columns"`
}

type parametersResponse struct {
	Custom []Parameter `json:"custom"`
}

// DestinationTypes are the destination kinds known to Xtract Universal.
// Filtering by a value outside this list is treated as no filter.
var DestinationTypes = []string{
	"Unknown",
	"Alteryx",
	"AlteryxConnect",
	"AzureDWH",
	"AzureBlob",
	"CSV",
	"DB2",
	"EXASOL",
	"FileCSV",
	"FileJSON",
	"GoodData",
	"GoogleCloudStorage",
	"HANA",
	"HTTPJSON",
	"MicroStrategy",
	"MySQL",
	"ODataAtom",
	"Oracle",
	"Parquet",
	"PostgreSQL",
	"PowerBI",
	"PowerBIConnector",
	"Qlik",
	"Redshift",
	"S3Destination",
	"Salesforce",
	"SharePoint",
	"Snowflake",
	"SQLServer",
	"SqlServerReportingServices",
	"Tableau",
	"Teradata",
	"Vertica",
}

// IsDestinationType reports whether t is one of DestinationTypes
func IsDestinationType(t string) bool {
	for _, d := range DestinationTypes {
		if d == t {
			return true
		}
	}

	return false
}
