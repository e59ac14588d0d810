package raster

import "github.com/phanxgames/montage/media"

// blendFunc composites one premultiplied source pixel onto a destination
// pixel.
type blendFunc func(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte)

func blendFor(m media.BlendMode) blendFunc {
	switch m {
	case media.BlendAdd:
		return blendPlus
	case media.BlendMultiply:
		return blendMultiply
	case media.BlendScreen:
		return blendScreen
	case media.BlendErase:
		return blendDestinationOut
	case media.BlendMask:
		return blendDestinationIn
	case media.BlendBelow:
		return blendDestinationOver
	case media.BlendNone:
		return blendSource
	default:
		return blendSourceOver
	}
}

// S + D*(1-Sa)
func blendSourceOver(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := 255 - sa
	return addClamp(sr, mulDiv255(dr, inv)),
		addClamp(sg, mulDiv255(dg, inv)),
		addClamp(sb, mulDiv255(db, inv)),
		addClamp(sa, mulDiv255(da, inv))
}

// S*(1-Da) + D
func blendDestinationOver(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := 255 - da
	return addClamp(mulDiv255(sr, inv), dr),
		addClamp(mulDiv255(sg, inv), dg),
		addClamp(mulDiv255(sb, inv), db),
		addClamp(mulDiv255(sa, inv), da)
}

// D*Sa
func blendDestinationIn(_, _, _, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return mulDiv255(dr, sa), mulDiv255(dg, sa), mulDiv255(db, sa), mulDiv255(da, sa)
}

// D*(1-Sa)
func blendDestinationOut(_, _, _, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	inv := 255 - sa
	return mulDiv255(dr, inv), mulDiv255(dg, inv), mulDiv255(db, inv), mulDiv255(da, inv)
}

func blendSource(sr, sg, sb, sa, _, _, _, _ byte) (byte, byte, byte, byte) {
	return sr, sg, sb, sa
}

func blendPlus(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return addClamp(sr, dr), addClamp(sg, dg), addClamp(sb, db), addClamp(sa, da)
}

func blendMultiply(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separable(sr, sg, sb, sa, dr, dg, db, da, mulDiv255)
}

func blendScreen(sr, sg, sb, sa, dr, dg, db, da byte) (byte, byte, byte, byte) {
	return separable(sr, sg, sb, sa, dr, dg, db, da, func(s, d byte) byte {
		return 255 - mulDiv255(255-s, 255-d)
	})
}

// separable applies a per-channel blend to unpremultiplied colors and
// composites the result:
// Cr = Sa*Da*B(Cs, Cd) + S*(1-Da) + D*(1-Sa), Ar = Sa + Da - Sa*Da.
func separable(sr, sg, sb, sa, dr, dg, db, da byte, b func(s, d byte) byte) (byte, byte, byte, byte) {
	if sa == 0 {
		return dr, dg, db, da
	}
	if da == 0 {
		return sr, sg, sb, sa
	}
	sada := mulDiv255(sa, da)
	ch := func(s, d byte) byte {
		bl := b(unpremul(s, sa), unpremul(d, da))
		return addClamp(addClamp(mulDiv255(bl, sada), mulDiv255(s, 255-da)), mulDiv255(d, 255-sa))
	}
	return ch(sr, dr), ch(sg, dg), ch(sb, db), addClamp(sa, da-sada)
}

func unpremul(c, a byte) byte {
	if a == 0 {
		return 0
	}
	return byte(min(uint16(c)*255/uint16(a), 255))
}

func mulDiv255(a, b byte) byte {
	return byte((uint16(a)*uint16(b) + 127) / 255)
}

func addClamp(a, b byte) byte {
	return byte(min(uint16(a)+uint16(b), 255))
}
