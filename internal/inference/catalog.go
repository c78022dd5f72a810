package inference

import "onion-detect/internal/models"

// Entry is one possible mock outcome.
type Entry struct {
	Key           string
	Name          string
	Description   string
	Healthy       bool
	MinConfidence float64
	MaxConfidence float64
	Treatments    []string
	Prevention    []string
}

// DiseaseInfo backs /api/diseases.
type DiseaseInfo struct {
	Name       string `json:"name"`
	Pathogen   string `json:"pathogen"`
	Symptoms   string `json:"symptoms"`
	Conditions string `json:"conditions"`
}

// SimulationNote is attached to every mock result.
const SimulationNote = "⚠️ Ini adalah hasil simulasi untuk testing. Model AI belum dilatih dengan dataset real."

// The confidence bands are placeholder values kept for compatibility with
// existing clients, not calibrated output.
var catalog = []Entry{
	{
		Key:           "healthy",
		Name:          "Sehat",
		Description:   "Tanaman bawang merah dalam kondisi sehat tanpa tanda-tanda penyakit.",
		Healthy:       true,
		MinConfidence: 85,
		MaxConfidence: 95,
		Treatments: []string{
			"Lanjutkan perawatan rutin",
			"Monitoring berkala kondisi tanaman",
			"Pemupukan sesuai jadwal",
			"Penyiraman yang tepat",
		},
		Prevention: []string{
			"Pertahankan kondisi optimal",
			"Monitoring rutin",
			"Sanitasi lahan",
			"Nutrisi seimbang",
		},
	},
	{
		Key:           "purple_blotch",
		Name:          "Bercak Ungu (Purple Blotch)",
		Description:   "Penyakit yang disebabkan oleh jamur Alternaria porri. Ditandai dengan bercak-bercak ungu pada daun.",
		MinConfidence: 75,
		MaxConfidence: 90,
		Treatments: []string{
			"Semprot dengan fungisida berbahan aktif mankozeb",
			"Perbaiki drainase lahan untuk mengurangi kelembaban",
			"Buang dan musnahkan bagian tanaman yang terinfeksi",
			"Berikan jarak tanam yang cukup untuk sirkulasi udara",
		},
		Prevention: []string{
			"Gunakan benih yang sehat dan bersertifikat",
			"Rotasi tanaman dengan tanaman non-allium",
			"Jaga kebersihan lahan dari sisa tanaman",
		},
	},
	{
		Key:           "downy_mildew",
		Name:          "Embun Bulu (Downy Mildew)",
		Description:   "Penyakit yang menyebabkan lapisan putih keabu-abuan pada permukaan daun.",
		MinConfidence: 70,
		MaxConfidence: 88,
		Treatments: []string{
			"Aplikasi fungisida sistemik (metalaksil + mankozeb)",
			"Perbaiki ventilasi dan drainase",
			"Kurangi kelembaban dengan mulsa plastik",
			"Semprot pada pagi hari sebelum embun terbentuk",
		},
		Prevention: []string{
			"Pilih varietas tahan penyakit",
			"Atur jarak tanam yang optimal",
			"Hindari penyiraman di sore hari",
			"Gunakan mulsa untuk mengurangi kelembaban tanah",
		},
	},
	{
		Key:           "leaf_blight",
		Name:          "Busuk Daun (Leaf Blight)",
		Description:   "Penyakit jamur yang menyebabkan bercak putih kecil yang membesar dan mengering.",
		MinConfidence: 72,
		MaxConfidence: 86,
		Treatments: []string{
			"Fungisida berbahan aktif iprodion atau vinclozolin",
			"Buang daun yang terinfeksi",
			"Kurangi kelembaban daun",
			"Aplikasi pupuk berimbang",
		},
		Prevention: []string{
			"Hindari luka mekanis pada tanaman",
			"Jaga kebersihan alat pertanian",
			"Monitoring cuaca dan kelembaban",
			"Aplikasi fungisida preventif",
		},
	},
	{
		Key:           "anthracnose",
		Name:          "Antraknosa",
		Description:   "Penyakit jamur yang menyebabkan bercak coklat dengan tepi gelap pada daun.",
		MinConfidence: 68,
		MaxConfidence: 84,
		Treatments: []string{
			"Fungisida berbahan aktif azoksistrobin",
			"Perbaiki drainase lahan",
			"Buang tanaman yang terinfeksi berat",
			"Aplikasi kapur untuk menetralkan pH tanah",
		},
		Prevention: []string{
			"Gunakan benih bebas penyakit",
			"Rotasi tanaman 2-3 tahun",
			"Jaga pH tanah 6.0-7.0",
			"Hindari genangan air",
		},
	},
}

var diseases = []DiseaseInfo{
	{
		Name:       "Bercak Ungu (Purple Blotch)",
		Pathogen:   "Alternaria porri",
		Symptoms:   "Bercak ungu pada daun, dapat menyebar ke seluruh tanaman",
		Conditions: "Kelembaban tinggi, suhu 20-30°C",
	},
	{
		Name:       "Embun Bulu (Downy Mildew)",
		Pathogen:   "Peronospora destructor",
		Symptoms:   "Lapisan putih keabu-abuan pada permukaan daun",
		Conditions: "Kelembaban sangat tinggi, suhu dingin",
	},
	{
		Name:       "Busuk Daun (Leaf Blight)",
		Pathogen:   "Botrytis squamosa",
		Symptoms:   "Bercak putih kecil yang membesar dan mengering",
		Conditions: "Kelembaban tinggi, angin kencang",
	},
	{
		Name:       "Antraknosa",
		Pathogen:   "Colletotrichum gloeosporioides",
		Symptoms:   "Bercak coklat dengan tepi gelap pada daun",
		Conditions: "Curah hujan tinggi, suhu hangat",
	},
}

// Catalog returns a copy of the mock outcome table.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	for i, e := range catalog {
		out[i] = e.clone()
	}
	return out
}

// Lookup finds a catalog entry by key or display name.
func Lookup(keyOrName string) (Entry, bool) {
	for _, e := range catalog {
		if e.Key == keyOrName || e.Name == keyOrName {
			return e.clone(), true
		}
	}
	return Entry{}, false
}

func Diseases() []DiseaseInfo {
	return append([]DiseaseInfo(nil), diseases...)
}

func (e Entry) clone() Entry {
	e.Treatments = append([]string(nil), e.Treatments...)
	e.Prevention = append([]string(nil), e.Prevention...)
	return e
}

func (e Entry) severities() []models.Severity {
	if e.Healthy {
		return []models.Severity{models.SeverityNormal}
	}
	return models.DiseaseSeverities
}
