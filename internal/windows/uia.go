//go:build windows

package windows

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"

	ole "github.com/go-ole/go-ole"
)

// UI Automation identifiers from UIAutomationClient.h
const (
	treeScopeDescendants = 0x4

	invokePatternID        = 10000
	valuePatternID         = 10002
	selectionItemPatternID = 10010
	togglePatternID        = 10015

	controlTypePropertyID  = 30003
	namePropertyID         = 30005
	automationIDPropertyID = 30011

	rpcEChangedMode = 0x80010106
)

// Virtual table slots. IUnknown occupies 0-2 on every interface.
const (
	automationElementFromHandle       = 6
	automationCreateTrueCondition     = 21
	automationCreatePropertyCondition = 23
	automationCreateAndCondition      = 25

	elementFindFirst                = 5
	elementFindAll                  = 6
	elementGetCurrentPattern        = 16
	elementCurrentControlType       = 21
	elementCurrentName              = 23
	elementCurrentAutomationID      = 29
	elementCurrentClassName         = 30
	elementCurrentBoundingRectangle = 43
	elementArrayLength              = 3
	elementArrayGetElement          = 4
	invokePatternInvoke             = 3
	togglePatternToggle             = 3
	togglePatternCurrentToggleState = 4
	valuePatternCurrentValue        = 4
	selectionItemPatternSelect      = 3
	selectionItemPatternIsSelected  = 6
)

var (
	clsidCUIAutomation = ole.NewGUID("{FF48DBA4-60EF-4201-AA87-54103EEF594E}")
	iidIUIAutomation   = ole.NewGUID("{30CBE57D-D9D0-452A-AB13-7AC5AC4825EE}")
)

// controlTypeIDs maps UIA control type names to their identifiers
var controlTypeIDs = map[string]int32{
	"Button":      50000,
	"Calendar":    50001,
	"CheckBox":    50002,
	"ComboBox":    50003,
	"Edit":        50004,
	"Hyperlink":   50005,
	"Image":       50006,
	"ListItem":    50007,
	"List":        50008,
	"Menu":        50009,
	"MenuBar":     50010,
	"MenuItem":    50011,
	"ProgressBar": 50012,
	"RadioButton": 50013,
	"ScrollBar":   50014,
	"Slider":      50015,
	"Spinner":     50016,
	"StatusBar":   50017,
	"Tab":         50018,
	"TabItem":     50019,
	"Text":        50020,
	"ToolBar":     50021,
	"ToolTip":     50022,
	"Tree":        50023,
	"TreeItem":    50024,
	"Custom":      50025,
	"Group":       50026,
	"Thumb":       50027,
	"DataGrid":    50028,
	"DataItem":    50029,
	"Document":    50030,
	"SplitButton": 50031,
	"Window":      50032,
	"Pane":        50033,
	"Header":      50034,
	"HeaderItem":  50035,
	"Table":       50036,
	"TitleBar":    50037,
	"Separator":   50038,
}

func controlTypeName(id int32) string {
	for name, v := range controlTypeIDs {
		if v == id {
			return name
		}
	}

	return fmt.Sprintf("ControlType(%d)", id)
}

// comCall invokes the method in the given vtable slot of a COM object and
// converts a failing HRESULT to an error
func comCall(obj *ole.IUnknown, slot uintptr, args ...uintptr) error {
	vtbl := *(*unsafe.Pointer)(unsafe.Pointer(obj))
	fn := *(*uintptr)(unsafe.Add(vtbl, slot*unsafe.Sizeof(uintptr(0))))

	callArgs := make([]uintptr, 0, len(args)+1)
	callArgs = append(callArgs, uintptr(unsafe.Pointer(obj)))
	callArgs = append(callArgs, args...)

	hr, _, _ := syscall.SyscallN(fn, callArgs...)
	if int32(uint32(hr)) < 0 {
		return ole.NewError(uintptr(uint32(hr)))
	}

	return nil
}

func release(objs ...*ole.IUnknown) {
	for _, o := range objs {
		if o != nil {
			o.Release()
		}
	}
}

// automation wraps an IUIAutomation instance. COM objects are bound to the
// apartment of the thread that created them, so an automation must only be
// used from the goroutine that created it, locked to its OS thread.
type automation struct {
	uia     *ole.IUnknown
	comInit bool
}

func newAutomation() (*automation, error) {
	a := &automation{}

	if err := ole.CoInitializeEx(0, ole.COINIT_APARTMENTTHREADED); err != nil {
		var oleErr *ole.OleError
		if !errors.As(err, &oleErr) {
			return nil, fmt.Errorf("CoInitializeEx: %w", err)
		}

		switch oleErr.Code() {
		case 1: // S_FALSE: already initialised on this thread
			a.comInit = true
		case rpcEChangedMode:
			// Initialised elsewhere with another threading model; usable as is
		default:
			return nil, fmt.Errorf("CoInitializeEx: %w", err)
		}
	} else {
		a.comInit = true
	}

	uia, err := ole.CreateInstance(clsidCUIAutomation, iidIUIAutomation)
	if err != nil {
		a.close()
		return nil, fmt.Errorf("create CUIAutomation: %w", err)
	}

	a.uia = uia
	return a, nil
}

func (a *automation) close() {
	release(a.uia)
	a.uia = nil

	if a.comInit {
		ole.CoUninitialize()
		a.comInit = false
	}
}

func (a *automation) elementFromHandle(hwnd uintptr) (*ole.IUnknown, error) {
	var el *ole.IUnknown
	if err := comCall(a.uia, automationElementFromHandle, hwnd, uintptr(unsafe.Pointer(&el))); err != nil {
		return nil, fmt.Errorf("ElementFromHandle(0x%x): %w", hwnd, err)
	}

	if el == nil {
		return nil, fmt.Errorf("ElementFromHandle(0x%x): %w", hwnd, ErrElementNotFound)
	}

	return el, nil
}

func (a *automation) trueCondition() (*ole.IUnknown, error) {
	var cond *ole.IUnknown
	if err := comCall(a.uia, automationCreateTrueCondition, uintptr(unsafe.Pointer(&cond))); err != nil {
		return nil, fmt.Errorf("CreateTrueCondition: %w", err)
	}

	return cond, nil
}

// propertyCondition creates a condition matching a property value. VARIANT
// is larger than a register, so the 64-bit calling conventions pass it by
// reference.
func (a *automation) propertyCondition(propertyID int32, value *ole.VARIANT) (*ole.IUnknown, error) {
	var cond *ole.IUnknown
	err := comCall(a.uia, automationCreatePropertyCondition,
		uintptr(propertyID),
		uintptr(unsafe.Pointer(value)),
		uintptr(unsafe.Pointer(&cond)),
	)
	if err != nil {
		return nil, fmt.Errorf("CreatePropertyCondition(%d): %w", propertyID, err)
	}

	return cond, nil
}

func (a *automation) stringCondition(propertyID int32, s string) (*ole.IUnknown, error) {
	bstr := ole.SysAllocStringLen(s)
	v := ole.NewVariant(ole.VT_BSTR, int64(uintptr(unsafe.Pointer(bstr))))
	defer v.Clear()

	return a.propertyCondition(propertyID, &v)
}

func (a *automation) intCondition(propertyID, value int32) (*ole.IUnknown, error) {
	v := ole.NewVariant(ole.VT_I4, int64(value))
	return a.propertyCondition(propertyID, &v)
}

func (a *automation) andCondition(left, right *ole.IUnknown) (*ole.IUnknown, error) {
	var cond *ole.IUnknown
	err := comCall(a.uia, automationCreateAndCondition,
		uintptr(unsafe.Pointer(left)),
		uintptr(unsafe.Pointer(right)),
		uintptr(unsafe.Pointer(&cond)),
	)
	if err != nil {
		return nil, fmt.Errorf("CreateAndCondition: %w", err)
	}

	return cond, nil
}

// controlCondition builds the AND of every non-empty field of ctrl
func (a *automation) controlCondition(ctrl Control) (*ole.IUnknown, error) {
	var parts []*ole.IUnknown
	defer func() { release(parts...) }()

	if ctrl.AutomationID != "" {
		c, err := a.stringCondition(automationIDPropertyID, ctrl.AutomationID)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}

	if ctrl.Name != "" {
		c, err := a.stringCondition(namePropertyID, ctrl.Name)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}

	if ctrl.ControlType != "" {
		id, ok := controlTypeIDs[ctrl.ControlType]
		if !ok {
			return nil, fmt.Errorf("unknown control type %q", ctrl.ControlType)
		}

		c, err := a.intCondition(controlTypePropertyID, id)
		if err != nil {
			return nil, err
		}
		parts = append(parts, c)
	}

	if len(parts) == 0 {
		return a.trueCondition()
	}

	cond := parts[0]
	cond.AddRef()

	for _, p := range parts[1:] {
		combined, err := a.andCondition(cond, p)
		release(cond)
		if err != nil {
			return nil, err
		}
		cond = combined
	}

	return cond, nil
}

// find returns the first descendant of the window matching ctrl
func (a *automation) find(hwnd uintptr, ctrl Control) (*ole.IUnknown, error) {
	root, err := a.elementFromHandle(hwnd)
	if err != nil {
		return nil, err
	}
	defer release(root)

	cond, err := a.controlCondition(ctrl)
	if err != nil {
		return nil, err
	}
	defer release(cond)

	var found *ole.IUnknown
	err = comCall(root, elementFindFirst,
		treeScopeDescendants,
		uintptr(unsafe.Pointer(cond)),
		uintptr(unsafe.Pointer(&found)),
	)
	if err != nil {
		return nil, fmt.Errorf("FindFirst %s: %w", ctrl, err)
	}

	if found == nil {
		return nil, fmt.Errorf("%s: %w", ctrl, ErrElementNotFound)
	}

	return found, nil
}

// findAll returns every descendant of the window matching ctrl
func (a *automation) findAll(hwnd uintptr, ctrl Control) ([]*ole.IUnknown, error) {
	root, err := a.elementFromHandle(hwnd)
	if err != nil {
		return nil, err
	}
	defer release(root)

	cond, err := a.controlCondition(ctrl)
	if err != nil {
		return nil, err
	}
	defer release(cond)

	var arr *ole.IUnknown
	err = comCall(root, elementFindAll,
		treeScopeDescendants,
		uintptr(unsafe.Pointer(cond)),
		uintptr(unsafe.Pointer(&arr)),
	)
	if err != nil {
		return nil, fmt.Errorf("FindAll %s: %w", ctrl, err)
	}

	if arr == nil {
		return nil, nil
	}
	defer release(arr)

	var length int32
	if err := comCall(arr, elementArrayLength, uintptr(unsafe.Pointer(&length))); err != nil {
		return nil, fmt.Errorf("element array length: %w", err)
	}

	elements := make([]*ole.IUnknown, 0, length)
	for i := int32(0); i < length; i++ {
		var el *ole.IUnknown
		if err := comCall(arr, elementArrayGetElement, uintptr(i), uintptr(unsafe.Pointer(&el))); err != nil {
			release(elements...)
			return nil, fmt.Errorf("element array item %d: %w", i, err)
		}

		if el != nil {
			elements = append(elements, el)
		}
	}

	return elements, nil
}

func pattern(el *ole.IUnknown, patternID int32) (*ole.IUnknown, error) {
	var p *ole.IUnknown
	if err := comCall(el, elementGetCurrentPattern, uintptr(patternID), uintptr(unsafe.Pointer(&p))); err != nil {
		return nil, fmt.Errorf("GetCurrentPattern(%d): %w", patternID, err)
	}

	if p == nil {
		return nil, ErrPatternUnsupported
	}

	return p, nil
}

func bstrProperty(el *ole.IUnknown, slot uintptr) (string, error) {
	var b *uint16
	if err := comCall(el, slot, uintptr(unsafe.Pointer(&b))); err != nil {
		return "", err
	}

	if b == nil {
		return "", nil
	}

	s := ole.BstrToString(b)
	_ = ole.SysFreeString((*int16)(unsafe.Pointer(b)))

	return s, nil
}

// toggleState reads TogglePattern, falling back to SelectionItemPattern
// for radio buttons that only expose selection
func toggleState(el *ole.IUnknown) (ToggleState, error) {
	if p, err := pattern(el, togglePatternID); err == nil {
		defer release(p)

		var state int32
		if err := comCall(p, togglePatternCurrentToggleState, uintptr(unsafe.Pointer(&state))); err != nil {
			return ToggleNone, fmt.Errorf("toggle state: %w", err)
		}

		return ToggleState(state), nil
	} else if !errors.Is(err, ErrPatternUnsupported) {
		return ToggleNone, err
	}

	p, err := pattern(el, selectionItemPatternID)
	if err != nil {
		return ToggleNone, err
	}
	defer release(p)

	var selected int32
	if err := comCall(p, selectionItemPatternIsSelected, uintptr(unsafe.Pointer(&selected))); err != nil {
		return ToggleNone, fmt.Errorf("selection state: %w", err)
	}

	if selected != 0 {
		return ToggleOn, nil
	}

	return ToggleOff, nil
}

// click performs the element's default action: Invoke, else Toggle, else Select
func click(el *ole.IUnknown) error {
	attempts := []struct {
		patternID int32
		slot      uintptr
	}{
		{invokePatternID, invokePatternInvoke},
		{togglePatternID, togglePatternToggle},
		{selectionItemPatternID, selectionItemPatternSelect},
	}

	for _, a := range attempts {
		p, err := pattern(el, a.patternID)
		if errors.Is(err, ErrPatternUnsupported) {
			continue
		}

		if err != nil {
			return err
		}

		err = comCall(p, a.slot)
		release(p)
		return err
	}

	return ErrPatternUnsupported
}

// value reads ValuePattern.CurrentValue, falling back to the element name
func value(el *ole.IUnknown) (string, error) {
	p, err := pattern(el, valuePatternID)
	if errors.Is(err, ErrPatternUnsupported) {
		return bstrProperty(el, elementCurrentName)
	}

	if err != nil {
		return "", err
	}
	defer release(p)

	return bstrProperty(p, valuePatternCurrentValue)
}

func describe(el *ole.IUnknown) (ElementInfo, error) {
	var info ElementInfo
	var err error

	if info.Name, err = bstrProperty(el, elementCurrentName); err != nil {
		return info, fmt.Errorf("name: %w", err)
	}

	if info.AutomationID, err = bstrProperty(el, elementCurrentAutomationID); err != nil {
		return info, fmt.Errorf("automation id: %w", err)
	}

	if info.ClassName, err = bstrProperty(el, elementCurrentClassName); err != nil {
		return info, fmt.Errorf("class name: %w", err)
	}

	var typeID int32
	if err := comCall(el, elementCurrentControlType, uintptr(unsafe.Pointer(&typeID))); err != nil {
		return info, fmt.Errorf("control type: %w", err)
	}
	info.ControlType = controlTypeName(typeID)

	if err := comCall(el, elementCurrentBoundingRectangle, uintptr(unsafe.Pointer(&info.Rect))); err != nil {
		return info, fmt.Errorf("bounding rectangle: %w", err)
	}

	info.Toggle, err = toggleState(el)
	if errors.Is(err, ErrPatternUnsupported) {
		err = nil
	}

	return info, err
}
