package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"

	"github.com/ironsheep/leakzone-mcp/internal/catalog"
	"github.com/ironsheep/leakzone-mcp/internal/geometry"
	"github.com/ironsheep/leakzone-mcp/internal/raster"
	"github.com/ironsheep/leakzone-mcp/internal/zone"
)

// Coordinate spaces accepted by the zone tools.
const (
	spaceCanonical = "canonical"
	spaceDisplay   = "display"
	spaceMap       = "map"
)

// Render modes accepted by zone_render.
const (
	modeInteractive = "interactive"
	modeExport      = "export"
)

// defaultZoom is the view width used when a tool call omits zoom.
const defaultZoom = 1200

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "zone_list", "zone_create").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	s.debugf("tools/call %s %s", params.Name, params.Arguments)
	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		s.debugf("tools/call %s failed: %v", params.Name, err)
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	if len(args) == 0 {
		args = json.RawMessage("{}")
	}
	switch name {
	// Floor plan and catalog
	case "floorplan_info":
		return s.handleFloorPlanInfo()
	case "fluid_catalog":
		return s.handleFluidCatalog()

	// Queries
	case "zone_list":
		return s.handleZoneList(args)
	case "zone_summary":
		return s.handleZoneSummary(args)
	case "zone_locate":
		return s.handleZoneLocate(args)

	// Mutations
	case "zone_create":
		return s.handleZoneCreate(ctx, args)
	case "zone_update":
		return s.handleZoneUpdate(ctx, args)
	case "zone_delete":
		return s.handleZoneDelete(ctx, args)
	case "zone_reload":
		return s.handleZoneReload(ctx)

	// Images and reports
	case "zone_render":
		return s.handleZoneRender(args)
	case "zone_preview":
		return s.handleZonePreview(args)
	case "zone_thumbnail":
		return s.handleZoneThumbnail(args)
	case "zone_export":
		return s.handleZoneExport(ctx, args)

	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// Panics are suppressed; on marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

// === Floor Plan and Catalog Handlers ===

type floorPlanInfo struct {
	Plan            *raster.Info `json:"plan,omitempty"`
	Width           int          `json:"width"`
	Height          int          `json:"height"`
	CanonicalWidth  float64      `json:"canonical_width"`
	CanonicalHeight float64      `json:"canonical_height"`
	Scale           float64      `json:"scale"`
	ExportScale     float64      `json:"export_scale"`
	StoreAvailable  bool         `json:"store_available"`
	Zones           int          `json:"zones"`
}

func (s *Server) handleFloorPlanInfo() (interface{}, error) {
	space := s.session.Space()
	w, h := space.RealSize()
	return &floorPlanInfo{
		Plan:            s.plan,
		Width:           w,
		Height:          h,
		CanonicalWidth:  space.CanonicalWidth(),
		CanonicalHeight: space.CanonicalHeight(),
		Scale:           space.Scale(),
		ExportScale:     space.ExportScale(),
		StoreAvailable:  s.session.Available(),
		Zones:           s.session.Registry().Len(),
	}, nil
}

func (s *Server) handleFluidCatalog() (interface{}, error) {
	return map[string]interface{}{
		"fluids": s.session.Catalog().Specs(),
	}, nil
}

// === Query Handlers ===

type zoneListArgs struct {
	zone.Filter
}

type zoneListResult struct {
	Count int           `json:"count"`
	Zones []zone.Record `json:"zones"`
	Areas []string      `json:"areas"`
}

func (s *Server) handleZoneList(args json.RawMessage) (interface{}, error) {
	var a zoneListArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	zones := s.session.Zones(a.Filter)
	return &zoneListResult{
		Count: len(zones),
		Zones: zones,
		Areas: s.session.Registry().Areas(),
	}, nil
}

func (s *Server) handleZoneSummary(args json.RawMessage) (interface{}, error) {
	var a zoneListArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	return s.session.Summary(a.Filter), nil
}

type zoneLocateArgs struct {
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
	Space string  `json:"space"`
	Zoom  float64 `json:"zoom"`
	All   bool    `json:"all"`
	zone.Filter
}

type zoneLocateResult struct {
	Found bool          `json:"found"`
	Zone  *zone.Record  `json:"zone,omitempty"`
	Zones []zone.Record `json:"zones,omitempty"`
}

func (s *Server) handleZoneLocate(args json.RawMessage) (interface{}, error) {
	var a zoneLocateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	p := geometry.Point{X: a.X, Y: a.Y}
	if a.Space == spaceDisplay && a.Zoom == 0 {
		a.Zoom = defaultZoom
	}

	if a.All {
		cp, err := s.canonicalPoint(a.Space, p, a.Zoom)
		if err != nil {
			return nil, err
		}
		zones := s.session.LocateAll(cp, a.Filter)
		return &zoneLocateResult{Found: len(zones) > 0, Zones: zones}, nil
	}

	var (
		rec zone.Record
		ok  bool
	)
	switch a.Space {
	case "", spaceCanonical:
		rec, ok = s.session.LocateCanonical(p, a.Filter)
	case spaceDisplay:
		if a.Zoom < 0 {
			return nil, fmt.Errorf("zoom must be positive, got %v", a.Zoom)
		}
		rec, ok = s.session.LocateDisplay(p, a.Zoom, a.Filter)
	case spaceMap:
		rec, ok = s.session.LocateMap(p, a.Filter)
	default:
		return nil, unknownSpace(a.Space)
	}
	if !ok {
		return &zoneLocateResult{}, nil
	}
	return &zoneLocateResult{Found: true, Zone: &rec}, nil
}

// canonicalPoint converts p from the named space.
func (s *Server) canonicalPoint(space string, p geometry.Point, zoom float64) (geometry.Point, error) {
	switch space {
	case "", spaceCanonical:
		return p, nil
	case spaceDisplay:
		if zoom <= 0 {
			return geometry.Point{}, fmt.Errorf("zoom must be positive, got %v", zoom)
		}
		return s.session.Space().PointToCanonical(p, zoom), nil
	case spaceMap:
		return s.session.Space().PointFromMap(p), nil
	default:
		return geometry.Point{}, unknownSpace(space)
	}
}

func unknownSpace(space string) error {
	return fmt.Errorf("unknown space %q (want %s, %s or %s)", space, spaceCanonical, spaceDisplay, spaceMap)
}

// === Mutation Handlers ===

type zoneCreateArgs struct {
	Space  string              `json:"space"`
	Box    *geometry.Box       `json:"box"`
	Bounds *geometry.MapBounds `json:"bounds"`
	Zoom   float64             `json:"zoom"`
	zone.Draft
}

func (s *Server) handleZoneCreate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a zoneCreateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	switch a.Space {
	case "", spaceCanonical:
		if a.Box == nil {
			return nil, fmt.Errorf("box is required")
		}
		return s.session.Create(ctx, *a.Box, a.Draft)
	case spaceDisplay:
		if a.Box == nil {
			return nil, fmt.Errorf("box is required")
		}
		if a.Zoom == 0 {
			a.Zoom = defaultZoom
		}
		return s.session.CreateFromDisplay(ctx, *a.Box, a.Zoom, a.Draft)
	case spaceMap:
		if a.Bounds == nil {
			return nil, fmt.Errorf("bounds are required in map space")
		}
		return s.session.CreateFromMap(ctx, *a.Bounds, a.Draft)
	default:
		return nil, unknownSpace(a.Space)
	}
}

// zoneTarget names a zone by durable key or by snapshot id. The key wins
// when both are given.
type zoneTarget struct {
	ID  *int   `json:"id"`
	Key string `json:"key"`
}

func (t zoneTarget) validate() error {
	if t.Key == "" && t.ID == nil {
		return fmt.Errorf("id or key is required")
	}
	return nil
}

type zoneUpdateArgs struct {
	zoneTarget
	zone.Edit
}

func (s *Server) handleZoneUpdate(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a zoneUpdateArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.zoneTarget.validate(); err != nil {
		return nil, err
	}
	if a.Key != "" {
		return s.session.UpdateByKey(ctx, a.Key, a.Edit)
	}
	return s.session.Update(ctx, *a.ID, a.Edit)
}

type zoneDeleteResult struct {
	Deleted bool   `json:"deleted"`
	ID      *int   `json:"id,omitempty"`
	Key     string `json:"key,omitempty"`
	Zones   int    `json:"zones"`
}

func (s *Server) handleZoneDelete(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a zoneTarget
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.validate(); err != nil {
		return nil, err
	}

	var err error
	if a.Key != "" {
		err = s.session.DeleteByKey(ctx, a.Key)
	} else {
		err = s.session.Delete(ctx, *a.ID)
	}
	if err != nil {
		return nil, err
	}
	return &zoneDeleteResult{
		Deleted: true,
		ID:      a.ID,
		Key:     a.Key,
		Zones:   s.session.Registry().Len(),
	}, nil
}

type zoneReloadResult struct {
	Zones   int      `json:"zones"`
	Skipped []string `json:"skipped,omitempty"`
}

func (s *Server) handleZoneReload(ctx context.Context) (interface{}, error) {
	err := s.session.Reload(ctx)
	res := &zoneReloadResult{Zones: s.session.Registry().Len()}
	if err == nil {
		return res, nil
	}

	var malformed *zone.MalformedError
	if !errors.As(err, &malformed) {
		return nil, err
	}
	for _, p := range malformed.Problems {
		res.Skipped = append(res.Skipped, p.Error())
	}
	return res, nil
}

// === Image and Report Handlers ===

type zoneRenderArgs struct {
	Mode string `json:"mode"`
	Zoom int    `json:"zoom"`
	zone.Filter
}

func (s *Server) handleZoneRender(args json.RawMessage) (interface{}, error) {
	var a zoneRenderArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	var img image.Image
	switch a.Mode {
	case "", modeInteractive:
		if a.Zoom == 0 {
			a.Zoom = defaultZoom
		}
		out, err := s.session.RenderInteractive(a.Zoom, a.Filter)
		if err != nil {
			return nil, err
		}
		img = out
	case modeExport:
		img = s.session.RenderExport(a.Filter)
	default:
		return nil, fmt.Errorf("unknown render mode %q (want %s or %s)", a.Mode, modeInteractive, modeExport)
	}
	return raster.Encode(img)
}

type zonePreviewArgs struct {
	Box       geometry.Box `json:"box"`
	FluidType string       `json:"fluid_type"`
}

func (s *Server) handleZonePreview(args json.RawMessage) (interface{}, error) {
	var a zonePreviewArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if a.FluidType == "" {
		a.FluidType = string(catalog.FluidAir)
	}
	img, err := s.session.Preview(a.Box, a.FluidType)
	if err != nil {
		return nil, err
	}
	return raster.Encode(img)
}

type zoneThumbnailArgs struct {
	zoneTarget
	Scale float64 `json:"scale"`
}

func (s *Server) handleZoneThumbnail(args json.RawMessage) (interface{}, error) {
	var a zoneThumbnailArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}
	if err := a.zoneTarget.validate(); err != nil {
		return nil, err
	}
	if a.Scale == 0 {
		a.Scale = 1.0
	}

	var id int
	if a.Key != "" {
		rec, ok := s.session.Registry().ByKey(a.Key)
		if !ok {
			return nil, fmt.Errorf("no zone with key %s", a.Key)
		}
		id = rec.ID
	} else {
		id = *a.ID
	}
	img, err := s.session.Thumbnail(id, a.Scale)
	if err != nil {
		return nil, err
	}
	return raster.Encode(img)
}

type zoneExportArgs struct {
	Prefix  string `json:"prefix"`
	Overlay *bool  `json:"overlay"`
	zone.Filter
}

func (s *Server) handleZoneExport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	if s.exporter == nil {
		return nil, fmt.Errorf("export is not configured")
	}
	var a zoneExportArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return nil, err
	}

	zones := s.session.Zones(a.Filter)
	var overlay image.Image
	if a.Overlay == nil || *a.Overlay {
		overlay = s.session.RenderExport(a.Filter)
	}
	return s.exporter.PublishReport(ctx, a.Prefix, zones, overlay)
}
