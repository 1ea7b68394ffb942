package openapi

import (
	"context"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/schema"
)

const petstore = `
openapi: 3.0.3
info:
  title: Pets
  version: 1.0.0
paths:
  /pets:
    get:
      operationId: listPets
      responses:
        "200":
          description: ok
    post:
      operationId: createPet
      summary: Create a pet
      requestBody:
        content:
          application/json:
            schema:
              $ref: '#/components/schemas/Pet'
      responses:
        "201":
          description: created
  /pets/{id}/tags:
    put:
      requestBody:
        content:
          text/plain:
            schema:
              type: string
          application/x-www-form-urlencoded:
            schema:
              type: object
              properties:
                tags:
                  type: array
                  items:
                    $ref: '#/components/schemas/Tag'
      responses:
        "204":
          description: updated
components:
  schemas:
    Tag:
      type: string
      minLength: 1
    Address:
      type: object
      required: [street]
      properties:
        street:
          type: string
    Pet:
      type: object
      required: [name]
      properties:
        name:
          type: string
          title: Name
        address:
          $ref: '#/components/schemas/Address'
`

func document(t *testing.T, raw string) schema.Document {
	t.Helper()
	return schema.MustNewDocument(schema.SourceInline("petstore.yaml"), []byte(raw))
}

func TestExtractor_OperationsWithRequestBodies(t *testing.T) {
	ops, err := NewExtractor(Options{}).Operations(context.Background(), document(t, petstore))
	if err != nil {
		t.Fatalf("operations: %v", err)
	}

	ids := make([]string, 0, len(ops))
	for id := range ops {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	if diff := cmp.Diff([]string{"createPet", "put:/pets/{id}/tags"}, ids); diff != "" {
		t.Fatalf("operation ids mismatch (-want +got):\n%s", diff)
	}

	create := ops["createPet"]
	if create.Method != "POST" || create.Path != "/pets" || create.Summary != "Create a pet" {
		t.Fatalf("unexpected operation metadata: %+v", create)
	}
	if create.MediaType != "application/json" {
		t.Fatalf("media type = %q", create.MediaType)
	}

	tags := ops["put:/pets/{id}/tags"]
	if tags.MediaType != "application/x-www-form-urlencoded" {
		t.Fatalf("expected form media type to win over text/plain, got %q", tags.MediaType)
	}
	items := schema.Map(schema.Map(schema.Map(tags.Schema, "properties"), "tags"), "items")
	if _, ok := items[schema.KeyRef]; ok {
		t.Fatalf("item reference was not inlined: %#v", items)
	}
	if items["minLength"] == nil {
		t.Fatalf("expected Tag constraints on items: %#v", items)
	}
}

func TestExtractor_FormSchemaInlinesComponents(t *testing.T) {
	node, err := NewExtractor(Options{}).FormSchema(context.Background(), document(t, petstore), "createPet")
	if err != nil {
		t.Fatalf("form schema: %v", err)
	}
	if _, ok := node[schema.KeyRef]; ok {
		t.Fatalf("root reference was not inlined: %#v", node)
	}

	props := schema.Map(node, "properties")
	if schema.Map(props, "name")["title"] != "Name" {
		t.Fatalf("expected name title, got %#v", props["name"])
	}
	address := schema.Map(props, "address")
	if _, ok := schema.Map(schema.Map(address, "properties"), "street")["type"]; !ok {
		t.Fatalf("expected Address to be inlined: %#v", address)
	}
	if _, ok := node["components"]; ok {
		t.Fatalf("form schema should not carry the document components")
	}
}

func TestExtractor_Errors(t *testing.T) {
	ctx := context.Background()
	extractor := NewExtractor(Options{})

	if _, err := extractor.FormSchema(ctx, document(t, petstore), "listPets"); err == nil {
		t.Fatalf("expected error for operation without a request body")
	}
	if _, err := extractor.Operations(ctx, document(t, "openapi: [")); err == nil {
		t.Fatalf("expected error for malformed document")
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := extractor.Operations(cancelled, document(t, petstore)); err == nil {
		t.Fatalf("expected error for cancelled context")
	}
}

func TestExtractor_ValidateRejectsBrokenDocument(t *testing.T) {
	broken := `
openapi: 3.0.3
info:
  title: Broken
paths: {}
`
	_, err := NewExtractor(Options{Validate: true}).Operations(context.Background(), document(t, broken))
	if err == nil {
		t.Fatalf("expected validation error for missing info.version")
	}
}
