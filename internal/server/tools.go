package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// filterProperties are the optional filter arguments shared by the query,
// render and export tools. An omitted list applies no predicate; an empty
// list matches nothing.
func filterProperties() map[string]interface{} {
	return map[string]interface{}{
		"fluid_types": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Only zones with these fluids (Air, Gas, Water, Helium, Oil, Inspection-OK). Aliases and any case are accepted",
		},
		"states": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Only zones in these repair states (Damaged, In-Repair, Completed). Case-insensitive",
		},
		"areas": map[string]interface{}{
			"type":        "array",
			"items":       map[string]interface{}{"type": "string"},
			"description": "Only zones in these areas",
		},
		"text": map[string]interface{}{
			"type":        "string",
			"description": "Case-insensitive match against label, area, machine id and installation type",
		},
	}
}

// withFilter adds the filter arguments to props.
func withFilter(props map[string]interface{}) map[string]interface{} {
	for k, v := range filterProperties() {
		props[k] = v
	}
	return props
}

// zoneFieldProperties are the editable zone attributes.
func zoneFieldProperties() map[string]interface{} {
	return map[string]interface{}{
		"label": map[string]interface{}{
			"type":        "string",
			"description": "Date or descriptive label",
		},
		"fluid_type": map[string]interface{}{
			"type":        "string",
			"description": "Leaking fluid; see fluid_catalog",
		},
		"category": map[string]interface{}{
			"type":        "string",
			"description": "Leak category for the fluid. Defaults to the fluid's first category",
		},
		"severity": map[string]interface{}{
			"type":        "string",
			"description": "Low, Medium or High. Case-insensitive; legacy Spanish labels are accepted",
		},
		"state": map[string]interface{}{
			"type":        "string",
			"description": "Damaged, In-Repair or Completed. Case-insensitive; legacy Spanish labels are accepted",
		},
		"area": map[string]interface{}{
			"type":        "string",
			"description": "Plant area",
		},
		"machine_id": map[string]interface{}{
			"type":        "string",
			"description": "Machine identifier",
		},
		"installation_type": map[string]interface{}{
			"type":        "string",
			"description": "Ground or Aerial. Case-insensitive; legacy Spanish labels are accepted",
		},
	}
}

func boxProperty(description string) map[string]interface{} {
	return map[string]interface{}{
		"type":        "object",
		"description": description,
		"properties": map[string]interface{}{
			"x1": map[string]interface{}{"type": "number"},
			"y1": map[string]interface{}{"type": "number"},
			"x2": map[string]interface{}{"type": "number"},
			"y2": map[string]interface{}{"type": "number"},
		},
		"required": []string{"x1", "y1", "x2", "y2"},
	}
}

func targetProperties() map[string]interface{} {
	return map[string]interface{}{
		"id": map[string]interface{}{
			"type":        "integer",
			"description": "Snapshot id from the latest zone_list. Shifts after deletes",
		},
		"key": map[string]interface{}{
			"type":        "string",
			"description": "Durable zone key. Preferred over id",
		},
	}
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	createProps := zoneFieldProperties()
	createProps["space"] = map[string]interface{}{
		"type":        "string",
		"enum":        []string{"canonical", "display", "map"},
		"description": "Coordinate space of box/bounds. Default canonical",
	}
	createProps["box"] = boxProperty("Zone rectangle, top-left origin (canonical or display space)")
	createProps["bounds"] = map[string]interface{}{
		"type":        "object",
		"description": "Zone rectangle in map space (Y up)",
		"properties": map[string]interface{}{
			"xmin": map[string]interface{}{"type": "number"},
			"xmax": map[string]interface{}{"type": "number"},
			"ymin": map[string]interface{}{"type": "number"},
			"ymax": map[string]interface{}{"type": "number"},
		},
	}
	createProps["zoom"] = map[string]interface{}{
		"type":        "number",
		"description": "Display width in pixels for display space. Default 1200",
	}

	updateProps := zoneFieldProperties()
	for k, v := range targetProperties() {
		updateProps[k] = v
	}

	thumbProps := targetProperties()
	thumbProps["scale"] = map[string]interface{}{
		"type":        "number",
		"description": "Scale factor for the crop. Default 1.0",
		"default":     1.0,
	}

	return []Tool{
		// Floor plan and catalog
		{
			Name:        "floorplan_info",
			Description: "Report the floor plan's native size, the canonical coordinate space and whether the zone store is available.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},
		{
			Name:        "fluid_catalog",
			Description: "List the fluids with their colours, leak categories, flow-rate ranges and annual costs.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Queries
		{
			Name:        "zone_list",
			Description: "List leak zones in store order (oldest first), optionally filtered. Coordinates are canonical.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": filterProperties(),
			},
		},
		{
			Name:        "zone_summary",
			Description: "Count zones per fluid and per state and total their annual cost, optionally filtered.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": filterProperties(),
			},
		},
		{
			Name:        "zone_locate",
			Description: "Find the zone under a point. The earliest-registered zone wins when zones overlap; set all to list every match.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withFilter(map[string]interface{}{
					"x": map[string]interface{}{"type": "number"},
					"y": map[string]interface{}{"type": "number"},
					"space": map[string]interface{}{
						"type":        "string",
						"enum":        []string{"canonical", "display", "map"},
						"description": "Coordinate space of the point. Default canonical",
					},
					"zoom": map[string]interface{}{
						"type":        "number",
						"description": "Display width in pixels for display space. Default 1200",
					},
					"all": map[string]interface{}{
						"type":        "boolean",
						"description": "Return every containing zone",
					},
				}),
				"required": []string{"x", "y"},
			},
		},

		// Mutations
		{
			Name:        "zone_create",
			Description: "Register a new leak zone. Flow rate and annual cost are derived from the fluid and category.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": createProps,
				"required":   []string{"fluid_type"},
			},
		},
		{
			Name:        "zone_update",
			Description: "Edit a zone's attributes. Changing the fluid resets the category unless a valid one is given; Inspection-OK marks the zone Completed.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": updateProps,
			},
		},
		{
			Name:        "zone_delete",
			Description: "Delete a zone by key or snapshot id. Ids of later zones shift down by one.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": targetProperties(),
			},
		},
		{
			Name:        "zone_reload",
			Description: "Re-read the zone store and report rows that could not be loaded.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": map[string]interface{}{},
			},
		},

		// Images and reports
		{
			Name:        "zone_render",
			Description: "Draw zone outlines on the floor plan and return base64 PNG. interactive draws ID labels at the given view width; export draws area labels at native resolution.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withFilter(map[string]interface{}{
					"mode": map[string]interface{}{
						"type":    "string",
						"enum":    []string{"interactive", "export"},
						"default": "interactive",
					},
					"zoom": map[string]interface{}{
						"type":        "integer",
						"description": "View width in pixels for interactive mode. Default 1200",
					},
				}),
			},
		},
		{
			Name:        "zone_preview",
			Description: "Crop a canonical box from the floor plan tinted with the fluid colour, as shown while drawing a new zone.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"box": boxProperty("Canonical rectangle"),
					"fluid_type": map[string]interface{}{
						"type":        "string",
						"description": "Fluid whose colour tints the crop. Default Air",
					},
				},
				"required": []string{"box"},
			},
		},
		{
			Name:        "zone_thumbnail",
			Description: "Crop a stored zone out of the floor plan and return it as base64 PNG.",
			InputSchema: map[string]interface{}{
				"type":       "object",
				"properties": thumbProps,
			},
		},
		{
			Name:        "zone_export",
			Description: "Publish a CSV of the filtered zones and, unless overlay is false, the export overlay PNG. Returns where they were written.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": withFilter(map[string]interface{}{
					"prefix": map[string]interface{}{
						"type":        "string",
						"description": "File name prefix. Default leakzones",
					},
					"overlay": map[string]interface{}{
						"type":    "boolean",
						"default": true,
					},
				}),
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
