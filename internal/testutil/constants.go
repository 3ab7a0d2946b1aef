// Package testutil provides common constants, builders and fakes for tests
package testutil

import "time"

const (
	// TestTimeout is the default timeout for test operations
	TestTimeout = 30 * time.Second

	// ShortTestTimeout is a shorter timeout for quick operations
	ShortTestTimeout = 5 * time.Second
)

// Common test values
const (
	// TestExtractionName is the default extraction name
	TestExtractionName = "SALES"

	// TestExtractionType is the default extraction type
	TestExtractionType = "ODP"

	// TestExtractionSource is the default SAP source
	TestExtractionSource = "ec5"

	// TestSlidingColumn is the default sliding column
	TestSlidingColumn = "AEDAT"

	// TestSlidingDays is the default sliding window in days
	TestSlidingDays = 3

	// TestBaseURL is a metadata service address that is never dialed
	TestBaseURL = "http://xu.test:8065"
)

// SampleTemplate is a minimal JSON RSD template with the nodes the
// transformer edits
const SampleTemplate = `<api:script xmlns:api="http://apiscript.com/ns?v1" xmlns:xs="http://www.w3.org/2001/XMLSchema">

  <api:info title="PLACEHOLDER" desc="Generated schema file." xmlns:other="http://apiscript.com/ns?v1">
    <attr name="id" xs:type="int" readonly="true" other:xPath="/json/id" />
  </api:info>

  <api:set attr="DataModel" value="DOCUMENT" />
  <api:set attr="URI" value="http://localhost:8065/run/PLACEHOLDER/" />
  <api:set attr="JSONPath" value="$." />

  <api:script method="GET">
    <api:set attr="method" value="GET"/>
    <api:call op="jsonproviderGet">
      <api:push/>
    </api:call>
  </api:script>

</api:script>
`

// TemplateWithoutURI lacks the URI setting
const TemplateWithoutURI = `<api:script xmlns:api="http://apiscript.com/ns?v1">
  <api:info title="PLACEHOLDER" />
</api:script>
`

// TemplateWithoutInfo lacks the api:info node
const TemplateWithoutInfo = `<api:script xmlns:api="http://apiscript.com/ns?v1">
  <api:set attr="URI" value="http://localhost:8065/run/PLACEHOLDER/" />
</api:script>
`
