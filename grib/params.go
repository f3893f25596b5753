package grib

// paramKey identifies a parameter by its (discipline, category, number)
// triplet, the way edition 2 does on the wire.
type paramKey struct {
	Discipline int
	Category   int
	Number     int
}

// shortNames maps wire triplets to the ecCodes-style short names users
// filter on. The table covers the parameters the library ships samples
// for; unknown triplets surface as "unknown" rather than failing, so
// files with exotic parameters still scan and select on other keys.
var shortNames = map[paramKey]string{
	{0, 0, 0}: "t",   // temperature, K
	{0, 1, 0}: "q",   // specific humidity, kg/kg
	{0, 1, 1}: "r",   // relative humidity, %
	{0, 1, 8}: "tp",  // total precipitation, kg/m2
	{0, 2, 2}: "u",   // u wind component, m/s
	{0, 2, 3}: "v",   // v wind component, m/s
	{0, 2, 8}: "w",   // vertical velocity, Pa/s
	{0, 3, 0}: "sp",  // surface pressure, Pa
	{0, 3, 1}: "msl", // mean sea level pressure, Pa
	{0, 3, 4}: "z",   // geopotential, m2/s2
	{0, 3, 5}: "gh",  // geopotential height, gpm
}

var paramsByShortName = func() map[string]paramKey {
	m := make(map[string]paramKey, len(shortNames))
	for k, name := range shortNames {
		m[name] = k
	}

	return m
}()

// shortNameFor returns the short name for a wire triplet, or "unknown".
func shortNameFor(k paramKey) string {
	if name, ok := shortNames[k]; ok {
		return name
	}

	return "unknown"
}

// Level type codes (WMO code table 4.5) for the surfaces the library maps.
const (
	levelSurface        = 1
	levelMeanSea        = 101
	levelIsobaricInhPa  = 100
	levelHeightAboveGnd = 103
	levelHybrid         = 105
)

var levelTypeNames = map[int]string{
	levelSurface:        "surface",
	levelMeanSea:        "meanSea",
	levelIsobaricInhPa:  "isobaricInhPa",
	levelHeightAboveGnd: "heightAboveGround",
	levelHybrid:         "hybrid",
}

var levelTypeCodes = func() map[string]int {
	m := make(map[string]int, len(levelTypeNames))
	for code, name := range levelTypeNames {
		m[name] = code
	}

	return m
}()

// scaledLevel converts the wire (scaleFactor, scaledValue) pair to the level
// value users see: hPa for isobaric surfaces (the wire stores Pa), the plain
// value otherwise.
func scaledLevel(levelType, scale, value int) int {
	v := value
	for ; scale > 0; scale-- {
		v /= 10
	}
	for ; scale < 0; scale++ {
		v *= 10
	}

	if levelType == levelIsobaricInhPa {
		return v / 100
	}

	return v
}

// wireLevel is the inverse of scaledLevel for the encoder: scale factor is
// always written as 0.
func wireLevel(levelType, level int) int {
	if levelType == levelIsobaricInhPa {
		return level * 100
	}

	return level
}
