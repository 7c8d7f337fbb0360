package media

// Label names a selectable download option.
type Label string

const (
	LabelImages Label = "Images"
	LabelVideos Label = "Videos"
	LabelOthers Label = "Others"
	LabelAll    Label = "All"
)

// Selectors is the ordered reaction alphabet assigned to options by position.
var Selectors = []string{"1️⃣", "2️⃣", "3️⃣", "4️⃣"}

var categoryLabels = map[Category]Label{
	CategoryImage: LabelImages,
	CategoryVideo: LabelVideos,
	CategoryOther: LabelOthers,
}

// Option is one selectable download choice.
type Option struct {
	Label    Label
	Symbol   string
	category *Category // nil for All
	present  []Category
}

// Categories resolves the option to the buckets it downloads, in order.
func (o Option) Categories() []Category {
	if o.category != nil {
		return []Category{*o.category}
	}
	out := make([]Category, len(o.present))
	copy(out, o.present)
	return out
}

// BuildOptions derives the ordered option list from a scan. An empty result
// means there is nothing to prompt for.
func BuildOptions(r *ScanResult) []Option {
	var (
		options []Option
		present []Category
	)
	for _, c := range Categories {
		if r.Bucket(c).TotalBytes <= 0 {
			continue
		}
		c := c
		present = append(present, c)
		options = append(options, Option{Label: categoryLabels[c], category: &c})
	}
	if len(present) > 1 {
		options = append(options, Option{Label: LabelAll, present: present})
	}
	for i := range options {
		options[i].Symbol = Selectors[i]
	}
	return options
}

// Symbols returns the selector symbols of options in order.
func Symbols(options []Option) []string {
	out := make([]string, len(options))
	for i, o := range options {
		out[i] = o.Symbol
	}
	return out
}

// OptionBySymbol finds the option assigned to symbol.
func OptionBySymbol(options []Option, symbol string) (Option, bool) {
	for _, o := range options {
		if o.Symbol == symbol {
			return o, true
		}
	}
	return Option{}, false
}
