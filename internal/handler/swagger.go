package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/dafibh/proflow/proflow-backend/docs"
	"github.com/labstack/echo/v4"
	"github.com/swaggo/swag"
)

type jsonObject = map[string]interface{}

// OpenAPI3Spec is the subset of an OpenAPI 3.0 document served at /openapi.json
type OpenAPI3Spec struct {
	OpenAPI    string     `json:"openapi"`
	Info       jsonObject `json:"info"`
	Servers    []Server   `json:"servers"`
	Paths      jsonObject `json:"paths"`
	Components jsonObject `json:"components,omitempty"`
}

// Server represents an OpenAPI 3.0 server
type Server struct {
	URL         string `json:"url"`
	Description string `json:"description"`
}

var httpMethods = map[string]bool{
	"get": true, "put": true, "post": true, "delete": true, "patch": true, "head": true, "options": true,
}

// convertSwagger2 turns the swag-generated 2.0 document into OpenAPI 3.0 paths
// and components. Body and formData parameters become a requestBody, response
// schemas move under content.
func convertSwagger2(swagger2 jsonObject) (paths, components jsonObject) {
	paths = jsonObject{}
	rawPaths, _ := swagger2["paths"].(jsonObject)
	for route, item := range rawPaths {
		ops, ok := item.(jsonObject)
		if !ok {
			continue
		}
		converted := jsonObject{}
		for method, op := range ops {
			operation, ok := op.(jsonObject)
			if !ok || !httpMethods[method] {
				converted[method] = rewriteRefs(op)
				continue
			}
			converted[method] = convertOperation(operation)
		}
		paths[route] = converted
	}

	components = jsonObject{}
	if secDefs, ok := swagger2["securityDefinitions"].(jsonObject); ok {
		components["securitySchemes"] = secDefs
	}
	if definitions, ok := swagger2["definitions"].(jsonObject); ok {
		components["schemas"] = rewriteRefs(definitions)
	}
	return paths, components
}

func convertOperation(op jsonObject) jsonObject {
	out := jsonObject{}
	for key, value := range op {
		switch key {
		case "parameters", "responses", "consumes", "produces":
		default:
			out[key] = rewriteRefs(value)
		}
	}

	var params []interface{}
	form := jsonObject{}
	var required []interface{}
	rawParams, _ := op["parameters"].([]interface{})
	for _, raw := range rawParams {
		p, ok := raw.(jsonObject)
		if !ok {
			continue
		}
		switch p["in"] {
		case "body":
			out["requestBody"] = jsonObject{
				"required": p["required"] == true,
				"content":  jsonObject{"application/json": jsonObject{"schema": rewriteRefs(p["schema"])}},
			}
		case "formData":
			name, _ := p["name"].(string)
			form[name] = paramSchema(p)
			if p["required"] == true {
				required = append(required, name)
			}
		default:
			params = append(params, convertParameter(p))
		}
	}
	if len(form) > 0 {
		schema := jsonObject{"type": "object", "properties": form}
		if len(required) > 0 {
			schema["required"] = required
		}
		out["requestBody"] = jsonObject{
			"content": jsonObject{"multipart/form-data": jsonObject{"schema": schema}},
		}
	}
	if len(params) > 0 {
		out["parameters"] = params
	}

	responses := jsonObject{}
	rawResponses, _ := op["responses"].(jsonObject)
	mediaType := "application/json"
	if produces, ok := op["produces"].([]interface{}); ok && len(produces) > 0 {
		if first, ok := produces[0].(string); ok {
			mediaType = first
		}
	}
	for status, raw := range rawResponses {
		resp, ok := raw.(jsonObject)
		if !ok {
			continue
		}
		converted := jsonObject{"description": resp["description"]}
		if converted["description"] == nil {
			converted["description"] = ""
		}
		if schema, ok := resp["schema"]; ok {
			converted["content"] = jsonObject{mediaType: jsonObject{"schema": rewriteRefs(schema)}}
		}
		responses[status] = converted
	}
	out["responses"] = responses
	return out
}

// convertParameter moves the 2.0 inline type fields of a path/query/header
// parameter into a schema object
func convertParameter(param jsonObject) jsonObject {
	out := jsonObject{}
	for _, field := range []string{"name", "in", "description", "required"} {
		if val, ok := param[field]; ok {
			out[field] = val
		}
	}
	if schema := paramSchema(param); len(schema) > 0 {
		out["schema"] = schema
	}
	return out
}

func paramSchema(param jsonObject) jsonObject {
	schema := jsonObject{}
	for _, field := range []string{"type", "format", "enum", "default", "minimum", "maximum", "items", "description"} {
		if val, ok := param[field]; ok {
			schema[field] = rewriteRefs(val)
		}
	}
	if schema["type"] == "file" {
		schema["type"] = "string"
		schema["format"] = "binary"
	}
	return schema
}

// rewriteRefs points every $ref at components/schemas
func rewriteRefs(data interface{}) interface{} {
	switch v := data.(type) {
	case jsonObject:
		out := make(jsonObject, len(v))
		for key, value := range v {
			if ref, ok := value.(string); ok && key == "$ref" {
				out[key] = strings.Replace(ref, "#/definitions/", "#/components/schemas/", 1)
				continue
			}
			out[key] = rewriteRefs(value)
		}
		return out
	case []interface{}:
		out := make([]interface{}, len(v))
		for i, item := range v {
			out[i] = rewriteRefs(item)
		}
		return out
	default:
		return data
	}
}

// ServeOpenAPI3Spec serves the swagger spec converted to OpenAPI 3.0. The
// server list points at the host that served the request plus local development.
func ServeOpenAPI3Spec(c echo.Context) error {
	doc, err := swag.ReadDoc(docs.SwaggerInfo.InstanceName())
	if err != nil {
		return NewInternalError(c, "Failed to read swagger doc")
	}

	var swagger2 jsonObject
	if err := json.Unmarshal([]byte(doc), &swagger2); err != nil {
		return NewInternalError(c, "Failed to parse swagger doc")
	}

	info, _ := swagger2["info"].(jsonObject)
	paths, components := convertSwagger2(swagger2)

	servers := []Server{{URL: "http://localhost:8080/api/v1", Description: "Local Development"}}
	if host := c.Request().Host; host != "" && !strings.HasPrefix(host, "localhost") {
		servers = append([]Server{{URL: c.Scheme() + "://" + host + "/api/v1", Description: "This server"}}, servers...)
	}

	return c.JSON(http.StatusOK, OpenAPI3Spec{
		OpenAPI:    "3.0.3",
		Info:       info,
		Servers:    servers,
		Paths:      paths,
		Components: components,
	})
}
