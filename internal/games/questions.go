package games

import "math/rand"

var TruthOrLoveQuestions = []string{
	"Apa hal paling kamu syukuri dari hubungan ini?",
	"Kenangan favoritmu bersama pasangan?",
	"Apa yang pertama kali kamu perhatikan dari pasangan?",
	"Kapan kamu merasa paling dicintai?",
	"Apa mimpi yang ingin kamu wujudkan bersama?",
	"Hal kecil apa dari pasangan yang selalu bikin kamu senyum?",
	"Apa yang ingin kamu katakan tapi belum sempat?",
	"Momen paling lucu yang pernah terjadi bersama?",
	"Apa lagu yang mengingatkanmu pada pasangan?",
	"Bagaimana pasangan membuatmu jadi orang yang lebih baik?",
	"Apa tempat favorit yang pernah dikunjungi bersama?",
	"Hal apa yang paling kamu kagumi dari pasangan?",
	"Apa rencana kencan impianmu?",
	"Kalau bisa mengulang satu momen, momen apa itu?",
	"Apa kebiasaan pasangan yang paling kamu suka?",
}

var LoveQuizQuestions = []string{
	"Makanan favorit pasanganmu?",
	"Warna favorit pasanganmu?",
	"Film favorit pasanganmu?",
	"Lagu favorit pasanganmu?",
	"Hobi utama pasanganmu?",
	"Minuman favorit pasanganmu?",
	"Hewan favorit pasanganmu?",
	"Tempat impian pasanganmu untuk liburan?",
	"Hal yang paling ditakuti pasanganmu?",
	"Cita-cita masa kecil pasanganmu?",
}

var WhosMoreLikelyQuestions = []string{
	"Siapa yang lebih bucin?",
	"Siapa yang lebih dulu minta maaf?",
	"Siapa yang lebih suka tidur?",
	"Siapa yang lebih romantic?",
	"Siapa yang lebih sering lupa?",
	"Siapa yang lebih jago masak?",
	"Siapa yang lebih cemburu?",
	"Siapa yang lebih sering curhat?",
	"Siapa yang lebih suka selfie?",
	"Siapa yang lebih clingy?",
	"Siapa yang lebih sabar?",
	"Siapa yang lebih sering nangis nonton film?",
}

var ThisOrThatQuestions = [][2]string{
	{"Pantai", "Gunung"},
	{"Chat", "Telpon"},
	{"Kopi", "Teh"},
	{"Nonton di rumah", "Nonton di bioskop"},
	{"Bangun pagi", "Begadang"},
	{"Hujan", "Cerah"},
	{"Kucing", "Anjing"},
	{"Pedas", "Manis"},
	{"Jalan-jalan", "Rebahan"},
	{"Foto", "Video"},
	{"Buku", "Podcast"},
	{"Masak sendiri", "Pesan makanan"},
}

var DatePlannerActivities = []string{
	"Nonton film", "Masak bareng", "Piknik", "Jalan sore", "Bersepeda",
	"Karaoke", "Main board game", "Belajar hal baru", "Olahraga bareng", "Stargazing",
	"DIY craft", "Foto-foto", "Nonton sunset", "Baca buku bareng", "Dance night",
}

var DatePlannerPlaces = []string{
	"Kafe aesthetic", "Taman kota", "Mall", "Pantai", "Rooftop",
	"Museum", "Perpustakaan", "Pasar malam", "Restoran baru", "Di rumah",
	"Kebun binatang", "Danau", "Bukit", "Alun-alun", "Food court",
}

// PickQuestion returns a random entry from bank.
func PickQuestion(r *rand.Rand, bank []string) string {
	return bank[r.Intn(len(bank))]
}

// PickPair returns a random option pair from bank.
func PickPair(r *rand.Rand, bank [][2]string) (string, string) {
	pair := bank[r.Intn(len(bank))]
	return pair[0], pair[1]
}

// PlanDate rolls a date idea. This one stays on-device: no session, no score.
func PlanDate(r *rand.Rand) (activity, place string) {
	return DatePlannerActivities[r.Intn(len(DatePlannerActivities))],
		DatePlannerPlaces[r.Intn(len(DatePlannerPlaces))]
}
