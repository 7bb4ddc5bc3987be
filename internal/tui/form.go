package tui

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/earwighaven/masterflatmaker/internal/combine"
	"github.com/earwighaven/masterflatmaker/internal/model"
)

// fieldID names every control of the session editor.
type fieldID int

const (
	fieldInputDir fieldID = iota
	fieldIgnoreType
	fieldMethod
	fieldMinMax
	fieldSigma
	fieldPrecal
	fieldPedestal
	fieldBiasFile
	fieldAutoDir
	fieldAutoRecursive
	fieldAutoBias
	fieldAutoResults
	fieldGroupSize
	fieldGroupFilter
	fieldGroupTemp
	fieldBandwidth
	fieldIgnoreSmall
	fieldMinGroup
	fieldOutputFile
	fieldOutputDir
	fieldMove
	fieldSubfolder
)

type fieldKind int

const (
	toggleField fieldKind = iota
	choiceField
	textField
)

var (
	methodChoices = []string{"Mean", "Median", "Min-max clip", "Sigma clip"}
	precalChoices = []string{"None", "Pedestal", "Fixed file", "Auto directory"}
)

// field is one editable control: a toggle, a rotating choice, or a free
// text value with a validator.
type field struct {
	id          fieldID
	section     string
	label       string
	kind        fieldKind
	placeholder string

	on      bool
	choices []string
	choice  int
	value   string
	invalid string

	validate func(string) string // empty result means the value is fine
}

func (fl *field) toggle() {
	fl.on = !fl.on
}

func (fl *field) cycle(delta int) {
	n := len(fl.choices)
	fl.choice = (fl.choice + delta + n) % n
}

// commit stores a typed value, keeping a rejected one visible together
// with the reason it was rejected.
func (fl *field) commit(value string) bool {
	fl.value = value
	if fl.validate != nil {
		if msg := fl.validate(value); msg != "" {
			fl.invalid = msg
			return false
		}
	}
	fl.invalid = ""
	return true
}

func (fl *field) displayValue() string {
	switch fl.kind {
	case toggleField:
		if fl.on {
			return "on"
		}
		return "off"
	case choiceField:
		return fl.choices[fl.choice]
	default:
		if fl.value == "" {
			return fl.placeholder
		}
		return fl.value
	}
}

// form holds the ordered editor fields and the cursor over the ones
// currently visible. Fields tied to an unselected method or an off toggle
// are hidden, the way the session editor window greys them out.
type form struct {
	fields []*field
	cursor int
}

func newForm(settings model.Settings) *form {
	f := &form{}
	add := func(fl *field) { f.fields = append(f.fields, fl) }

	add(&field{id: fieldInputDir, section: "Files", label: "Input directory",
		kind: textField, value: "."})
	add(&field{id: fieldIgnoreType, section: "Files", label: "Ignore frame type",
		kind: toggleField, on: settings.IgnoreFileType})

	add(&field{id: fieldMethod, section: "Combination", label: "Method",
		kind: choiceField, choices: methodChoices, choice: int(settings.CombineMethod)})
	add(&field{id: fieldMinMax, section: "Combination", label: "Clipped per end",
		kind: textField, value: strconv.Itoa(settings.MinMaxClipped),
		validate: wholeNumberAtLeast(1)})
	add(&field{id: fieldSigma, section: "Combination", label: "Z-score threshold",
		kind: textField, value: combine.FloatText(settings.SigmaThreshold),
		validate: positiveNumber})

	add(&field{id: fieldPrecal, section: "Precalibration", label: "Method",
		kind: choiceField, choices: precalChoices, choice: int(settings.Calibration)})
	add(&field{id: fieldPedestal, section: "Precalibration", label: "Pedestal value",
		kind: textField, value: strconv.Itoa(settings.Pedestal),
		validate: wholeNumberAtLeast(1)})
	add(&field{id: fieldBiasFile, section: "Precalibration", label: "Bias file",
		kind: textField, value: settings.FixedPath, placeholder: "(not set)",
		validate: existingFile})
	add(&field{id: fieldAutoDir, section: "Precalibration", label: "Calibration directory",
		kind: textField, value: settings.AutoDirectory, placeholder: "(not set)",
		validate: existingDirectory})
	add(&field{id: fieldAutoRecursive, section: "Precalibration", label: "Search recursively",
		kind: toggleField, on: settings.AutoRecursive})
	add(&field{id: fieldAutoBias, section: "Precalibration", label: "Bias files only",
		kind: toggleField, on: settings.AutoBiasOnly})
	add(&field{id: fieldAutoResults, section: "Precalibration", label: "Show selected file",
		kind: toggleField, on: settings.DisplayAutoResults})

	add(&field{id: fieldGroupSize, section: "Grouping", label: "Group by size",
		kind: toggleField, on: settings.GroupBySize})
	add(&field{id: fieldGroupFilter, section: "Grouping", label: "Group by filter",
		kind: toggleField, on: settings.GroupByFilter})
	add(&field{id: fieldGroupTemp, section: "Grouping", label: "Group by temperature",
		kind: toggleField, on: settings.GroupByTemperature})
	add(&field{id: fieldBandwidth, section: "Grouping", label: "Temperature bandwidth",
		kind: textField, value: combine.FloatText(settings.TemperatureBandwidth),
		validate: numberBetween(0.1, 50)})
	add(&field{id: fieldIgnoreSmall, section: "Grouping", label: "Ignore small groups",
		kind: toggleField, on: settings.IgnoreSmallGroups})
	add(&field{id: fieldMinGroup, section: "Grouping", label: "Minimum group size",
		kind: textField, value: strconv.Itoa(settings.MinimumGroupSize),
		validate: wholeNumberAtLeast(1)})

	add(&field{id: fieldOutputFile, section: "Output", label: "Output file",
		kind: textField, placeholder: "(automatic)"})
	add(&field{id: fieldOutputDir, section: "Output", label: "Output directory",
		kind: textField, placeholder: "(automatic)"})

	add(&field{id: fieldMove, section: "Disposition", label: "Move inputs to subfolder",
		kind: toggleField, on: settings.Disposition == model.DispositionSubFolder})
	add(&field{id: fieldSubfolder, section: "Disposition", label: "Subfolder name",
		kind: textField, value: settings.SubfolderName, validate: folderName})

	return f
}

func (f *form) get(id fieldID) *field {
	for _, fl := range f.fields {
		if fl.id == id {
			return fl
		}
	}
	return nil
}

func (f *form) current() *field {
	return f.fields[f.cursor]
}

func (f *form) method() model.CombineMethod {
	return model.CombineMethod(f.get(fieldMethod).choice)
}

func (f *form) precal() model.CalibrationType {
	return model.CalibrationType(f.get(fieldPrecal).choice)
}

func (f *form) grouped() bool {
	return f.get(fieldGroupSize).on || f.get(fieldGroupFilter).on || f.get(fieldGroupTemp).on
}

func (f *form) visible(fl *field) bool {
	switch fl.id {
	case fieldMinMax:
		return f.method() == model.CombineMinMax
	case fieldSigma:
		return f.method() == model.CombineSigmaClip
	case fieldPedestal:
		return f.precal() == model.CalibrationPedestal
	case fieldBiasFile:
		return f.precal() == model.CalibrationFixedFile
	case fieldAutoDir, fieldAutoRecursive, fieldAutoBias, fieldAutoResults:
		return f.precal() == model.CalibrationAutoDirectory
	case fieldBandwidth:
		return f.get(fieldGroupTemp).on
	case fieldMinGroup:
		return f.get(fieldIgnoreSmall).on
	case fieldOutputFile:
		return !f.grouped()
	case fieldOutputDir:
		return f.grouped()
	case fieldSubfolder:
		return f.get(fieldMove).on
	default:
		return true
	}
}

func (f *form) moveDown() {
	for i := f.cursor + 1; i < len(f.fields); i++ {
		if f.visible(f.fields[i]) {
			f.cursor = i
			return
		}
	}
}

func (f *form) moveUp() {
	for i := f.cursor - 1; i >= 0; i-- {
		if f.visible(f.fields[i]) {
			f.cursor = i
			return
		}
	}
}

// settings materializes the edited values. The bool reports whether every
// visible field holds a valid value; offenders keep their invalid marker
// for the view to show.
func (f *form) settings() (model.Settings, bool) {
	ok := true
	for _, fl := range f.fields {
		if !f.visible(fl) || fl.validate == nil {
			continue
		}
		if msg := fl.validate(fl.value); msg != "" {
			fl.invalid = msg
			ok = false
		}
	}
	if !ok {
		return model.Settings{}, false
	}

	s := model.Settings{
		CombineMethod:        f.method(),
		MinMaxClipped:        f.intValue(fieldMinMax),
		SigmaThreshold:       f.floatValue(fieldSigma),
		Calibration:          f.precal(),
		Pedestal:             f.intValue(fieldPedestal),
		FixedPath:            f.get(fieldBiasFile).value,
		AutoDirectory:        f.get(fieldAutoDir).value,
		AutoRecursive:        f.get(fieldAutoRecursive).on,
		AutoBiasOnly:         f.get(fieldAutoBias).on,
		DisplayAutoResults:   f.get(fieldAutoResults).on,
		IgnoreFileType:       f.get(fieldIgnoreType).on,
		GroupBySize:          f.get(fieldGroupSize).on,
		GroupByFilter:        f.get(fieldGroupFilter).on,
		GroupByTemperature:   f.get(fieldGroupTemp).on,
		TemperatureBandwidth: f.floatValue(fieldBandwidth),
		IgnoreSmallGroups:    f.get(fieldIgnoreSmall).on,
		MinimumGroupSize:     f.intValue(fieldMinGroup),
	}
	if f.get(fieldMove).on {
		s.Disposition = model.DispositionSubFolder
		s.SubfolderName = f.get(fieldSubfolder).value
	}
	return s, true
}

// firstInvalid returns the index of the first visible field whose value was
// rejected, or -1.
func (f *form) firstInvalid() int {
	for i, fl := range f.fields {
		if f.visible(fl) && fl.invalid != "" {
			return i
		}
	}
	return -1
}

func (f *form) intValue(id fieldID) int {
	n, _ := strconv.Atoi(strings.TrimSpace(f.get(id).value))
	return n
}

func (f *form) floatValue(id fieldID) float64 {
	v, _ := strconv.ParseFloat(strings.TrimSpace(f.get(id).value), 64)
	return v
}

func wholeNumberAtLeast(minimum int) func(string) string {
	return func(s string) string {
		n, err := strconv.Atoi(strings.TrimSpace(s))
		if err != nil || n < minimum {
			return fmt.Sprintf("needs a whole number of %d or more", minimum)
		}
		return ""
	}
}

func positiveNumber(s string) string {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || v <= 0 {
		return "needs a number greater than zero"
	}
	return ""
}

func numberBetween(low, high float64) func(string) string {
	return func(s string) string {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil || v < low || v > high {
			return fmt.Sprintf("needs a number between %s and %s",
				combine.FloatText(low), combine.FloatText(high))
		}
		return ""
	}
}

func existingFile(s string) string {
	info, err := os.Stat(strings.TrimSpace(s))
	if err != nil || info.IsDir() {
		return "file not found"
	}
	return ""
}

func existingDirectory(s string) string {
	info, err := os.Stat(strings.TrimSpace(s))
	if err != nil || !info.IsDir() {
		return "directory not found"
	}
	return ""
}

func folderName(s string) string {
	if !combine.ValidFolderName(s) {
		return "1 to 31 characters: letters, digits, _ - $ ( )"
	}
	return ""
}
