package catalog

// DefaultSpecs are the fluids and leak classes used on the factory floor.
// Annual costs are in USD per zone.
var DefaultSpecs = []FluidSpec{
	{
		Fluid:   FluidAir,
		Color:   "#0000FF",
		Aliases: []string{"Aire"},
		Categories: []Category{
			{Name: "Small", Entry: Entry{FlowRateRange: "0-5 l/min", AnnualCost: 120}},
			{Name: "Medium", Entry: Entry{FlowRateRange: "5-20 l/min", AnnualCost: 480}},
			{Name: "Large", Entry: Entry{FlowRateRange: "20-60 l/min", AnnualCost: 1900}},
			{Name: "Critical", Entry: Entry{FlowRateRange: ">60 l/min", AnnualCost: 4200}},
		},
	},
	{
		Fluid: FluidGas,
		Color: "#FFA500",
		Categories: []Category{
			{Name: "Minor", Entry: Entry{FlowRateRange: "0-1 l/min", AnnualCost: 350}},
			{Name: "Moderate", Entry: Entry{FlowRateRange: "1-5 l/min", AnnualCost: 1600}},
			{Name: "Major", Entry: Entry{FlowRateRange: ">5 l/min", AnnualCost: 5200}},
		},
	},
	{
		Fluid:   FluidWater,
		Color:   "#00FFFF",
		Aliases: []string{"Agua"},
		Categories: []Category{
			{Name: "Drip", Entry: Entry{FlowRateRange: "0-0.5 l/min", AnnualCost: 60}},
			{Name: "Stream", Entry: Entry{FlowRateRange: "0.5-4 l/min", AnnualCost: 420}},
			{Name: "Burst", Entry: Entry{FlowRateRange: ">4 l/min", AnnualCost: 2600}},
		},
	},
	{
		Fluid:   FluidHelium,
		Color:   "#FF00FF",
		Aliases: []string{"Helio"},
		Categories: []Category{
			{Name: "Micro", Entry: Entry{FlowRateRange: "0-0.1 l/min", AnnualCost: 900}},
			{Name: "Small", Entry: Entry{FlowRateRange: "0.1-1 l/min", AnnualCost: 3400}},
			{Name: "Large", Entry: Entry{FlowRateRange: ">1 l/min", AnnualCost: 12000}},
		},
	},
	{
		Fluid:   FluidOil,
		Color:   "#8B4513",
		Aliases: []string{"Aceite"},
		Categories: []Category{
			{Name: "Seep", Entry: Entry{FlowRateRange: "0-0.05 l/min", AnnualCost: 200}},
			{Name: "Drip", Entry: Entry{FlowRateRange: "0.05-0.5 l/min", AnnualCost: 1100}},
			{Name: "Stream", Entry: Entry{FlowRateRange: ">0.5 l/min", AnnualCost: 6500}},
		},
	},
	{
		Fluid:   FluidInspectionOK,
		Color:   "#00C000",
		Aliases: []string{"Inspeccion-OK", "Inspección-OK", "OK"},
		Categories: []Category{
			{Name: "No Leak", Entry: Entry{FlowRateRange: "", AnnualCost: 0}},
		},
	},
}

// Default returns a catalog built from DefaultSpecs.
func Default() *Catalog {
	c, err := New(DefaultSpecs...)
	if err != nil {
		panic(err) // DefaultSpecs is static
	}
	return c
}
