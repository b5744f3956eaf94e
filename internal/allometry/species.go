package allometry

import "strings"

// latinNames maps ITRDB four-letter species codes to Latin binomials. Genus-level codes
// map to the genus alone.
var latinNames = map[string]string{
	"ABAL": "Abies alba",
	"ABAM": "Abies amabilis",
	"ABBA": "Abies balsamea",
	"ABBO": "Abies borisii-regis",
	"ABCE": "Abies cephalonica",
	"ABCI": "Abies cilicica",
	"ABCO": "Abies concolor",
	"ABLA": "Abies lasiocarpa",
	"ABMA": "Abies magnifica",
	"ABNO": "Abies nordmanniana",
	"ABPI": "Abies pindrow",
	"ABPN": "Abies pinsapo",
	"ABSB": "Abies sibirica",
	"ACRU": "Acer rubrum",
	"ACSH": "Acer saccharum",
	"AGAU": "Agathis australis",
	"ARAR": "Araucaria araucana",
	"ATCU": "Athrotaxis cupressoides",
	"ATSE": "Athrotaxis selaginoides",
	"AUCH": "Austrocedrus chilensis",
	"BELE": "Betula lenta",
	"BEPE": "Betula pendula",
	"BEPU": "Betula pubescens",
	"CABU": "Carpinus betulus",
	"CADE": "Calocedrus decurrens",
	"CADN": "Castanea dentata",
	"CASA": "Castanea sativa",
	"CDAT": "Cedrus atlantica",
	"CDBR": "Cedrus brevifolia",
	"CDDE": "Cedrus deodara",
	"CDLI": "Cedrus libani",
	"CHLA": "Chamaecyparis lawsoniana",
	"CHNO": "Chamaecyparis nootkatensis",
	"CHOB": "Chamaecyparis obtusa",
	"CMJA": "Cryptomeria japonica",
	"CYGL": "Carya glabra",
	"CYOV": "Carya ovata",
	"FAGR": "Fagus grandifolia",
	"FASY": "Fagus sylvatica",
	"FOHO": "Fokienia hodginsii",
	"FREX": "Fraxinus excelsior",
	"JUEX": "Juniperus excelsa",
	"JUOC": "Juniperus occidentalis",
	"JUOS": "Juniperus osteosperma",
	"JUPH": "Juniperus phoenicea",
	"JUPR": "Juniperus procera",
	"JUSC": "Juniperus scopulorum",
	"JUTI": "Juniperus tibetica",
	"JUTU": "Juniperus turkestanica",
	"JUVI": "Juniperus virginiana",
	"LADE": "Larix decidua",
	"LAGM": "Larix gmelinii",
	"LALA": "Larix laricina",
	"LALY": "Larix lyallii",
	"LAOC": "Larix occidentalis",
	"LASI": "Larix sibirica",
	"LGFR": "Lagarostrobos franklinii",
	"LIBI": "Libocedrus bidwillii",
	"LIDE": "Calocedrus decurrens",
	"LITU": "Liriodendron tulipifera",
	"NOBE": "Nothofagus betuloides",
	"NOPU": "Nothofagus pumilio",
	"PCAB": "Picea abies",
	"PCEN": "Picea engelmannii",
	"PCGL": "Picea glauca",
	"PCMA": "Picea mariana",
	"PCOB": "Picea obovata",
	"PCOM": "Picea omorika",
	"PCOR": "Picea orientalis",
	"PCPU": "Picea pungens",
	"PCRU": "Picea rubens",
	"PCSH": "Picea schrenkiana",
	"PCSI": "Picea sitchensis",
	"PCSM": "Picea smithiana",
	"PHAS": "Phyllocladus aspleniifolius",
	"PIAL": "Pinus albicaulis",
	"PIAR": "Pinus aristata",
	"PIBA": "Pinus balfouriana",
	"PIBN": "Pinus banksiana",
	"PIBR": "Pinus brutia",
	"PICE": "Pinus cembra",
	"PICO": "Pinus contorta",
	"PIEC": "Pinus echinata",
	"PIED": "Pinus edulis",
	"PIFL": "Pinus flexilis",
	"PIHA": "Pinus halepensis",
	"PIHE": "Pinus heldreichii",
	"PIJE": "Pinus jeffreyi",
	"PIKO": "Pinus koraiensis",
	"PILA": "Pinus lambertiana",
	"PILO": "Pinus longaeva",
	"PIMU": "Pinus mugo",
	"PINI": "Pinus nigra",
	"PIPA": "Pinus palustris",
	"PIPE": "Pinus peuce",
	"PIPI": "Pinus pinea",
	"PIPN": "Pinus pinaster",
	"PIPO": "Pinus ponderosa",
	"PIPU": "Pinus pungens",
	"PIRE": "Pinus resinosa",
	"PIRI": "Pinus rigida",
	"PISF": "Pinus strobiformis",
	"PISI": "Pinus sibirica",
	"PIST": "Pinus strobus",
	"PISY": "Pinus sylvestris",
	"PITA": "Pinus taeda",
	"PIUN": "Pinus uncinata",
	"PIVI": "Pinus virginiana",
	"PONI": "Populus nigra",
	"PPDE": "Populus deltoides",
	"PPGR": "Populus grandidentata",
	"PPTM": "Populus tremula",
	"PPTR": "Populus tremuloides",
	"PSMA": "Pseudotsuga macrocarpa",
	"PSME": "Pseudotsuga menziesii",
	"QUAL": "Quercus alba",
	"QUCE": "Quercus cerris",
	"QUCO": "Quercus coccinea",
	"QUDG": "Quercus douglasii",
	"QUFA": "Quercus falcata",
	"QULO": "Quercus lobata",
	"QULY": "Quercus lyrata",
	"QUMA": "Quercus macrocarpa",
	"QUMO": "Quercus montana",
	"QUMU": "Quercus muehlenbergii",
	"QUPA": "Quercus palustris",
	"QUPE": "Quercus petraea",
	"QUPR": "Quercus prinus",
	"QURO": "Quercus robur",
	"QURU": "Quercus rubra",
	"QUSH": "Quercus shumardii",
	"QUST": "Quercus stellata",
	"QUVE": "Quercus velutina",
	"TABA": "Taxus baccata",
	"TADI": "Taxodium distichum",
	"TAMU": "Taxodium mucronatum",
	"TEGR": "Tectona grandis",
	"THOC": "Thuja occidentalis",
	"THPL": "Thuja plicata",
	"TICO": "Tilia cordata",
	"TSCA": "Tsuga canadensis",
	"TSCR": "Tsuga caroliniana",
	"TSHE": "Tsuga heterophylla",
	"TSME": "Tsuga mertensiana",

	"ABSP": "Abies",
	"JUSP": "Juniperus",
	"LASP": "Larix",
	"PCSP": "Picea",
	"PISP": "Pinus",
	"QUSP": "Quercus",
}

// LatinName returns the Latin name for an ITRDB species code.
func LatinName(code string) (string, bool) {
	name, ok := latinNames[strings.ToUpper(code)]
	return name, ok
}

// SplitLatinName splits a binomial into genus and specific epithet. A genus-only name
// returns an empty epithet.
func SplitLatinName(name string) (genus, species string) {
	fields := strings.Fields(name)
	switch len(fields) {
	case 0:
		return "", ""
	case 1:
		return fields[0], ""
	}
	return fields[0], strings.Join(fields[1:], " ")
}
