package scorm

import (
	"fmt"
	"strconv"

	"github.com/yungbote/trainforge-backend/internal/domain/training"
)

// Code is a SCORM runtime error code as returned by GetLastError.
type Code int

// SCORM 1.2 error codes.
const (
	Code12NoError           Code = 0
	Code12General           Code = 101
	Code12InvalidArgument   Code = 201
	Code12NoChildren        Code = 202
	Code12NoCount           Code = 203
	Code12NotInitialized    Code = 301
	Code12NotImplemented    Code = 401
	Code12KeywordSet        Code = 402
	Code12ReadOnly          Code = 403
	Code12WriteOnly         Code = 404
	Code12IncorrectDataType Code = 405
)

// SCORM 2004 error codes.
const (
	Code2004NoError                Code = 0
	Code2004General                Code = 101
	Code2004InitFailure            Code = 102
	Code2004AlreadyInitialized     Code = 103
	Code2004ContentTerminated      Code = 104
	Code2004TerminationFailure     Code = 111
	Code2004TerminateBeforeInit    Code = 112
	Code2004TerminateAfterTerm     Code = 113
	Code2004GetBeforeInit          Code = 122
	Code2004GetAfterTerm           Code = 123
	Code2004SetBeforeInit          Code = 132
	Code2004SetAfterTerm           Code = 133
	Code2004CommitBeforeInit       Code = 142
	Code2004CommitAfterTerm        Code = 143
	Code2004GeneralArgument        Code = 201
	Code2004GeneralGet             Code = 301
	Code2004GeneralSet             Code = 351
	Code2004GeneralCommit          Code = 391
	Code2004UndefinedElement       Code = 401
	Code2004UnimplementedElement   Code = 402
	Code2004ValueNotInitialized    Code = 403
	Code2004ReadOnly               Code = 404
	Code2004WriteOnly              Code = 405
	Code2004TypeMismatch           Code = 406
	Code2004OutOfRange             Code = 407
	Code2004DependencyNotSatisfied Code = 408
)

func (c Code) String() string { return strconv.Itoa(int(c)) }

var errorStrings12 = map[Code]string{
	Code12NoError:           "No error",
	Code12General:           "General exception",
	Code12InvalidArgument:   "Invalid argument error",
	Code12NoChildren:        "Element cannot have children",
	Code12NoCount:           "Element not an array - cannot have count",
	Code12NotInitialized:    "Not initialized",
	Code12NotImplemented:    "Not implemented error",
	Code12KeywordSet:        "Invalid set value, element is a keyword",
	Code12ReadOnly:          "Element is read only",
	Code12WriteOnly:         "Element is write only",
	Code12IncorrectDataType: "Incorrect data type",
}

var errorStrings2004 = map[Code]string{
	Code2004NoError:                "No Error",
	Code2004General:                "General Exception",
	Code2004InitFailure:            "General Initialization Failure",
	Code2004AlreadyInitialized:     "Already Initialized",
	Code2004ContentTerminated:      "Content Instance Terminated",
	Code2004TerminationFailure:     "General Termination Failure",
	Code2004TerminateBeforeInit:    "Termination Before Initialization",
	Code2004TerminateAfterTerm:     "Termination After Termination",
	Code2004GetBeforeInit:          "Retrieve Data Before Initialization",
	Code2004GetAfterTerm:           "Retrieve Data After Termination",
	Code2004SetBeforeInit:          "Store Data Before Initialization",
	Code2004SetAfterTerm:           "Store Data After Termination",
	Code2004CommitBeforeInit:       "Commit Before Initialization",
	Code2004CommitAfterTerm:        "Commit After Termination",
	Code2004GeneralArgument:        "General Argument Error",
	Code2004GeneralGet:             "General Get Failure",
	Code2004GeneralSet:             "General Set Failure",
	Code2004GeneralCommit:          "General Commit Failure",
	Code2004UndefinedElement:       "Undefined Data Model Element",
	Code2004UnimplementedElement:   "Unimplemented Data Model Element",
	Code2004ValueNotInitialized:    "Data Model Element Value Not Initialized",
	Code2004ReadOnly:               "Data Model Element Is Read Only",
	Code2004WriteOnly:              "Data Model Element Is Write Only",
	Code2004TypeMismatch:           "Data Model Element Type Mismatch",
	Code2004OutOfRange:             "Data Model Element Value Out Of Range",
	Code2004DependencyNotSatisfied: "Data Model Dependency Not Established",
}

// ErrorString returns the standard message for code under version, or "" for unknown codes.
func ErrorString(version training.ScormVersion, code Code) string {
	if version == training.ScormVersion2004 {
		return errorStrings2004[code]
	}
	return errorStrings12[code]
}

// ProtocolError is a runtime fault reported back to the package as an error code.
// It never escapes to the authoring side.
type ProtocolError struct {
	Code       Code
	Diagnostic string
}

func (e *ProtocolError) Error() string {
	if e == nil {
		return "scorm: no error"
	}
	return fmt.Sprintf("scorm error %d: %s", e.Code, e.Diagnostic)
}

// fault is the version-independent kind of a runtime error.
type fault int

const (
	faultGeneral fault = iota + 1
	faultAlreadyInitialized
	faultContentTerminated
	faultNotInitialized
	faultTerminated
	faultArgument
	faultNoChildren
	faultNoCount
	faultUndefined
	faultUnimplemented
	faultNotSet
	faultReadOnly
	faultWriteOnly
	faultKeyword
	faultType
	faultRange
	faultDependency
	faultGetFailure
	faultSetFailure
	faultCommit
)

type call int

const (
	callInit call = iota
	callGet
	callSet
	callCommit
	callTerminate
)

// codeFor maps a fault raised during c to the wire code of version.
func codeFor(version training.ScormVersion, c call, f fault) Code {
	if version == training.ScormVersion2004 {
		return code2004(c, f)
	}
	return code12(f)
}

func code12(f fault) Code {
	switch f {
	case faultNotInitialized, faultTerminated:
		return Code12NotInitialized
	case faultArgument, faultUndefined, faultGetFailure, faultSetFailure, faultDependency:
		return Code12InvalidArgument
	case faultNoChildren:
		return Code12NoChildren
	case faultNoCount:
		return Code12NoCount
	case faultUnimplemented:
		return Code12NotImplemented
	case faultKeyword:
		return Code12KeywordSet
	case faultReadOnly:
		return Code12ReadOnly
	case faultWriteOnly:
		return Code12WriteOnly
	case faultType, faultRange:
		return Code12IncorrectDataType
	default:
		return Code12General
	}
}

func code2004(c call, f fault) Code {
	switch f {
	case faultAlreadyInitialized:
		return Code2004AlreadyInitialized
	case faultContentTerminated:
		return Code2004ContentTerminated
	case faultNotInitialized:
		switch c {
		case callGet:
			return Code2004GetBeforeInit
		case callSet:
			return Code2004SetBeforeInit
		case callCommit:
			return Code2004CommitBeforeInit
		case callTerminate:
			return Code2004TerminateBeforeInit
		}
		return Code2004General
	case faultTerminated:
		switch c {
		case callGet:
			return Code2004GetAfterTerm
		case callSet:
			return Code2004SetAfterTerm
		case callCommit:
			return Code2004CommitAfterTerm
		case callTerminate:
			return Code2004TerminateAfterTerm
		}
		return Code2004General
	case faultArgument:
		return Code2004GeneralArgument
	case faultNoChildren, faultNoCount, faultGetFailure:
		return Code2004GeneralGet
	case faultUndefined:
		return Code2004UndefinedElement
	case faultUnimplemented:
		return Code2004UnimplementedElement
	case faultNotSet:
		return Code2004ValueNotInitialized
	case faultReadOnly, faultKeyword:
		return Code2004ReadOnly
	case faultWriteOnly:
		return Code2004WriteOnly
	case faultType:
		return Code2004TypeMismatch
	case faultRange:
		return Code2004OutOfRange
	case faultDependency:
		return Code2004DependencyNotSatisfied
	case faultSetFailure:
		return Code2004GeneralSet
	case faultCommit:
		if c == callTerminate {
			return Code2004TerminationFailure
		}
		return Code2004GeneralCommit
	default:
		return Code2004General
	}
}
