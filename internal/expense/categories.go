package expense

// Categories is the fixed chart-of-accounts list expenses must use. The
// first entry doubles as the default when extraction can't pick one.
var Categories = []string{
	"5400 Direct Travel",
	"5450 Direct Lodging",
	"5500 Direct Meals and Incidental",
	"6120 Fringe Staff Education",
	"7336 OVERHEAD COSTS:OH Seminars/Trainings",
	"7580 OH Travel",
	"7585 OH Business Meals",
	"8190 G&A Office supplies",
	"8197 G&A Office parking/tolls",
	"8207 G&A Conference/Seminar",
	"8231 BD Travel",
	"8232 BD Meals",
	"8320 G&A Travel",
	"8321 G&A Business meals",
	"8330 G&A Office supplies",
	"9080 Employee Morale",
}

// Projects is the fixed charge-code list.
var Projects = []string{
	"AAPE",
	"Air Force AFWERX D2P2",
	"Air Force FORECAST",
	"Army: CDAO-APT, EA, and AWG",
	"BD Cyber Range",
	"BD",
	"Boeing A&P COI",
	"CACI AMOD",
	"CACI FICA",
	"CACI Hyperion",
	"CCRi CATO",
	"CCRi Megalodon",
	"CMG C5",
	"Copper River Blue Steel",
	"DGS Next Gen",
	"EAS Predictive Analytics",
	"G&A B&P TerraChat",
	"G&A B&P",
	"G&A BD",
	"G&A CMMC",
	"G&A G&A",
	"G&A IR&D (BCKG)",
	"G&A IR&D (CAST IRON)",
	"G&A IR&D (Cyber Range/RoboCOP)",
	"G&A IR&D (Proposal Tech)",
	"G&A IR&D (Rubicon)",
	"G&A IR&D (SOCOM CRADA)",
	"G&A IR&D (STARbase)",
	"G&A Marketing",
	"G&A",
	"IEX SOCOM GAP",
	"IT Concepts IMD-T",
	"IT Concepts OHR Workforce Analytics (TO3)",
	"Ironclad MEAD",
	"NICE Phase II",
	"Overhead",
	"Peraton TALOS",
	"Pi Health FICS Ph III",
	"SOCOM CRADA",
	"SOCOM Rubicon TO 03",
	"SOCOM Rubicon TO 04",
	"SOFWERX Rapid AI",
	"SOFWERX SAIDAR",
	"SRS HATC (Humanitarian Aid Tech. Concept)",
	"STResearch DEMOS GeoFly",
	"STResearch Digiheals",
	"STResearch Grasshopper SIREN",
	"STResearch Groot",
	"STResearch SABI Ph4",
	"STResearch SABI Ph5 ECO",
	"VivSoft",
}

// DefaultProject is assigned to promoted and manually added rows.
const DefaultProject = "Overhead"

// ValidCategory reports whether c is in the allowed category list.
func ValidCategory(c string) bool {
	for _, v := range Categories {
		if v == c {
			return true
		}
	}
	return false
}

// ValidProject reports whether p is in the allowed project list.
func ValidProject(p string) bool {
	for _, v := range Projects {
		if v == p {
			return true
		}
	}
	return false
}
