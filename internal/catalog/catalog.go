package catalog

import "fmt"

// Label identifies one of the fixed tomato leaf classes. The numeric value
// matches the position of the class in the model output vector.
type Label int

const (
	EarlyBlight Label = iota
	Healthy
	LateBlight
	LeafMold
	SeptoriaLeafSpot
	SpiderMites

	labelCount
)

// Entry holds the text shown to the user for a predicted class
type Entry struct {
	Label       Label
	Description string
	Solution    string
}

var names = [labelCount]string{
	EarlyBlight:      "Early Blight",
	Healthy:          "Healthy",
	LateBlight:       "Late Blight",
	LeafMold:         "Tomato___Leaf_Mold",
	SeptoriaLeafSpot: "Tomato___Septoria_leaf_spot",
	SpiderMites:      "Tomato___Spider_mites Two-spotted_spider_mite",
}

var entries = [...]Entry{
	EarlyBlight: {
		Label:       EarlyBlight,
		Description: "The dark, irregular spots surrounded by yellowing areas suggest early blight, caused by the fungus Alternaria solani. This condition is common and affects leaves, stems, and fruits.",
		Solution:    " Apply fungicides like chlorothalonil or mancozeb, practice crop rotation, and remove infected leaves to improve airflow and reduce the spread of the disease.",
	},
	Healthy: {
		Label:       Healthy,
		Description: "The leaf appears healthy with no visible signs of disease or damage. This is an indication of good plant health and proper management.",
		Solution:    "Continue with good farming practices, including proper watering, sunlight, and pest control.",
	},
	LateBlight: {
		Label:       LateBlight,
		Description: "The presence of dark, water-soaked lesions that may expand and lead to leaf decay indicates late blight, caused by the pathogen Phytophthora infestans. This disease can rapidly destroy crops.",
		Solution:    "Use fungicides such as copper-based or metalaxyl solutions to control late blight. Remove and dispose of infected plants immediately, improve air circulation, and avoid overhead watering to minimize moisture on leaves.",
	},
	LeafMold: {
		Label:       LeafMold,
		Description: "This disease is characterized by yellow spots on the upper leaf surface and velvety mold growth on the underside. It's caused by the fungus Passalora fulva and thrives in humid conditions.",
		Solution:    "Improve ventilation around plants by spacing them properly and reducing humidity through base watering. Remove and dispose of infected leaves to prevent further spread. If necessary, apply fungicides like mancozeb or sulfur for effective control.",
	},
	SeptoriaLeafSpot: {
		Label:       SeptoriaLeafSpot,
		Description: "Small, circular spots with dark margins and light centers suggest Septoria leaf spot, caused by the fungus *Septoria lycopersici*. This disease primarily affects older leaves.",
		Solution:    "Prune and discard infected leaves to stop the spread of the fungus. Avoid overhead watering and ensure proper plant spacing to reduce leaf moisture. If needed, apply fungicides like chlorothalonil or copper sulfate for effective disease management.",
	},
	SpiderMites: {
		Label:       SpiderMites,
		Description: "This condition is caused by tiny spider mites that suck sap from leaves, leading to yellowing and eventual leaf drop. Fine webbing may also be visible.",
		Solution:    "Keep plants well-watered and maintain humidity to discourage spider mites. Regularly clean leaves to remove dust and monitor for early signs of infestation. Use insecticidal soap or miticides as needed to control the mites effectively.",
	},
}

// Both arrays fail to compile if an entry is added or dropped without the other.
var (
	_ [len(entries) - int(labelCount)]struct{}
	_ [int(labelCount) - len(entries)]struct{}
)

func (l Label) String() string {
	if !l.Valid() {
		return fmt.Sprintf("Label(%d)", int(l))
	}
	return names[l]
}

// Valid reports whether l is one of the known classes
func (l Label) Valid() bool {
	return l >= 0 && l < labelCount
}

// Count returns the number of classes the model distinguishes
func Count() int {
	return int(labelCount)
}

// Labels returns all classes in model output order
func Labels() []Label {
	labels := make([]Label, 0, labelCount)
	for l := Label(0); l < labelCount; l++ {
		labels = append(labels, l)
	}
	return labels
}

// Lookup returns the catalog entry for a label. It panics on labels outside
// the enumeration, which can only be produced by an unchecked conversion.
func Lookup(l Label) Entry {
	return entries[l]
}

// LabelAt resolves a model output index to its label
func LabelAt(index int) (Label, error) {
	l := Label(index)
	if !l.Valid() {
		return 0, fmt.Errorf("class index %d out of range [0,%d)", index, labelCount)
	}
	return l, nil
}
