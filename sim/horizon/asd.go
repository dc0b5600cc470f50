package horizon

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"os"
	"sort"
	"strconv"
	"strings"

	"gonum.org/v1/gonum/integrate"
)

// Physical constants (SI).
const (
	speedOfLight = 2.99792458e8          // m/s
	solarMassSec = 4.925490947641267e-6  // G·Msun/c^3 in seconds
	megaparsec   = 3.0856775814913673e22 // m
	rangeFactor  = 2.2648                // horizon / sky- and orientation-averaged range
)

// Default inspiral-range parameters.
const (
	DefaultSNRThreshold = 8.
	DefaultLowFrequency = 10.
)

// ASDRange computes the sky-averaged inspiral range from an amplitude spectral
// density, using the leading-order (Newtonian) inspiral spectrum integrated
// from LowFrequency up to the innermost stable circular orbit.
type ASDRange struct {
	freq         []float64 // Hz, strictly increasing
	psd          []float64 // 1/Hz
	LowFrequency float64   // Hz
	SNRThreshold float64
}

// LoadASD reads a two-column (frequency, ASD) text file.
func LoadASD(path string) (*ASDRange, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening ASD file: %w", err)
	}
	defer f.Close()
	r, err := ParseASD(f)
	if err != nil {
		return nil, fmt.Errorf("parsing ASD file %s: %w", path, err)
	}
	return r, nil
}

// ParseASD reads whitespace-separated frequency/ASD pairs. Blank lines and
// lines starting with '#' or '%' are skipped; extra columns are ignored.
func ParseASD(r io.Reader) (*ASDRange, error) {
	var freq, asd []float64
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "%") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, fmt.Errorf("line %d: want frequency and ASD, got %q", lineNo, line)
		}
		f, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: frequency: %w", lineNo, err)
		}
		a, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("line %d: ASD: %w", lineNo, err)
		}
		freq = append(freq, f)
		asd = append(asd, a)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading ASD: %w", err)
	}
	return NewASDRange(freq, asd)
}

// NewASDRange builds a provider from paired frequency and ASD samples.
func NewASDRange(freq, asd []float64) (*ASDRange, error) {
	if len(freq) != len(asd) {
		return nil, fmt.Errorf("%d frequencies for %d ASD values", len(freq), len(asd))
	}
	if len(freq) < 2 {
		return nil, fmt.Errorf("ASD needs at least two samples, got %d", len(freq))
	}
	if !sort.Float64sAreSorted(freq) {
		return nil, fmt.Errorf("ASD frequencies are not increasing")
	}
	psd := make([]float64, len(asd))
	for i, a := range asd {
		if a <= 0 || math.IsNaN(a) || math.IsInf(a, 0) {
			return nil, fmt.Errorf("ASD value %g at %g Hz is not positive and finite", a, freq[i])
		}
		if i > 0 && freq[i] == freq[i-1] {
			return nil, fmt.Errorf("duplicate frequency %g Hz", freq[i])
		}
		psd[i] = a * a
	}
	return &ASDRange{
		freq:         append([]float64(nil), freq...),
		psd:          psd,
		LowFrequency: DefaultLowFrequency,
		SNRThreshold: DefaultSNRThreshold,
	}, nil
}

// ISCOFrequency returns the gravitational-wave frequency at the innermost
// stable circular orbit of a binary with the given total mass (Msun).
func ISCOFrequency(totalMass float64) float64 {
	return 1 / (math.Pow(6, 1.5) * math.Pi * solarMassSec * totalMass)
}

// Horizon returns the distance (Mpc) at which an optimally located and
// oriented binary reaches the SNR threshold.
func (a *ASDRange) Horizon(m1, m2 float64) float64 {
	fHigh := ISCOFrequency(m1 + m2)
	var fs, integrand []float64
	for i, f := range a.freq {
		if f < a.LowFrequency || f > fHigh {
			continue
		}
		fs = append(fs, f)
		integrand = append(integrand, math.Pow(f, -7./3.)/a.psd[i])
	}
	if len(fs) < 2 {
		return 0
	}
	moment := integrate.Trapezoidal(fs, integrand)

	mcSec := ChirpMass(m1, m2) * solarMassSec
	// SNR^2 · D^2 for an optimally oriented source, D in metres.
	snr2d2 := 4 * (5. / 24.) * math.Pow(math.Pi, -4./3.) * speedOfLight * speedOfLight *
		math.Pow(mcSec, 5./3.) * moment
	return math.Sqrt(snr2d2) / a.SNRThreshold / megaparsec
}

// HorizonRange returns the sky- and orientation-averaged range in Mpc.
func (a *ASDRange) HorizonRange(m1, m2 float64) float64 {
	return a.Horizon(m1, m2) / rangeFactor
}
