package gcode

type ModalGroup byte

const (
	ModalGroupNone = iota
	ModalGroupNonModal
	ModalGroupMotion
	ModalGroupPlaneSelection
	ModalGroupDistanceMode
	ModalGroupFeedRateMode
	ModalGroupUnits
	ModalGroupCoordinateSystem
	ModalGroupStopping
	ModalGroupSpindle
	ModalGroupCoolant
	ModalGroupFeedRate
)

func (w Word) ModalGroup() ModalGroup {
	switch w.W {
	case 'G':
		switch w.Arg {
		case 4, 10, 28, 30, 53, 92:
			return ModalGroupNonModal
		case 0, 1, 2, 3, 38.2, 80:
			return ModalGroupMotion
		case 17, 18, 19:
			return ModalGroupPlaneSelection
		case 90, 91:
			return ModalGroupDistanceMode
		case 93, 94, 95:
			return ModalGroupFeedRateMode
		case 20, 21:
			return ModalGroupUnits
		case 54, 55, 56, 57, 58, 59:
			return ModalGroupCoordinateSystem
		}
	case 'M':
		switch w.Arg {
		case 0, 1, 2, 30:
			return ModalGroupStopping
		case 3, 4, 5:
			return ModalGroupSpindle
		case 7, 8, 9:
			return ModalGroupCoolant
		}
	case 'F':
		return ModalGroupFeedRate
	}

	return ModalGroupNone
}
